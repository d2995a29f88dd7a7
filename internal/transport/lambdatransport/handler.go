package lambdatransport

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bytedance/sonic"

	"github.com/awmpietro/path-analysis/internal/app"
	"github.com/awmpietro/path-analysis/internal/transport/analyzedto"
)

type Handler struct {
	svc app.Analyzer
}

func NewHandler(svc app.Analyzer) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Analyze(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := readBody(req)
	if err != nil {
		return jsonResp(http.StatusBadRequest, map[string]any{"error": "invalid body", "details": err.Error()}), nil
	}

	var in analyzedto.AnalyzeRequest
	if err := sonic.Unmarshal(body, &in); err != nil {
		return jsonResp(http.StatusBadRequest, map[string]any{"error": "invalid json", "details": err.Error()}), nil
	}

	rows, err := in.EventRows()
	if err != nil {
		return jsonResp(analyzedto.StatusFor(err), analyzedto.NewErrorResponse("invalid rows", err, nil)), nil
	}

	if in.Debug {
		res, trace, err := h.svc.AnalyzeWithTrace(ctx, rows, in.Options)
		if err != nil {
			return jsonResp(analyzedto.StatusFor(err), analyzedto.NewErrorResponse("analyze failed", err, trace)), nil
		}
		return jsonResp(http.StatusOK, analyzedto.AnalyzeResponse{Result: *res, Trace: trace}), nil
	}

	res, err := h.svc.Analyze(ctx, rows, in.Options)
	if err != nil {
		return jsonResp(analyzedto.StatusFor(err), analyzedto.NewErrorResponse("analyze failed", err, nil)), nil
	}
	return jsonResp(http.StatusOK, analyzedto.AnalyzeResponse{Result: *res}), nil
}

func readBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func jsonResp(status int, body any) events.APIGatewayV2HTTPResponse {
	b, _ := sonic.Marshal(body)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(b),
	}
}
