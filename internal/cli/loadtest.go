package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

type loadtestOpts struct {
	url      string
	rps      int
	duration time.Duration
	workers  int
	timeout  time.Duration
	data     string
	sessions int
	p90      time.Duration
}

type loadResult struct {
	latency time.Duration
	status  int
	err     error
}

type loadReport struct {
	targetRPS   int
	achievedRPS float64
	duration    time.Duration
	requests    int
	ok2xx       int
	non2xx      int
	errs        int
	avg         time.Duration
	p50         time.Duration
	p90         time.Duration
	p99         time.Duration
}

func newLoadtestCmd() *cobra.Command {
	var opts loadtestOpts

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send a steady request rate to a running /analyze endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadtest(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "http://localhost:8080/analyze", "analyze endpoint URL")
	f.IntVar(&opts.rps, "rps", 50, "target requests per second")
	f.DurationVar(&opts.duration, "duration", 60*time.Second, "test duration")
	f.IntVar(&opts.workers, "workers", 50, "number of concurrent workers")
	f.DurationVar(&opts.timeout, "timeout", 5*time.Second, "HTTP client timeout")
	f.StringVar(&opts.data, "data", "", "CSV/TSV export to send (default: synthetic sessions)")
	f.IntVar(&opts.sessions, "sessions", 200, "synthetic sessions per request")
	f.DurationVar(&opts.p90, "p90", 30*time.Millisecond, "P90 latency target")
	return cmd
}

func runLoadtest(cmd *cobra.Command, opts loadtestOpts) error {
	if opts.rps <= 0 || opts.duration <= 0 || opts.workers <= 0 {
		return errors.New("rps, duration and workers must be > 0")
	}
	logger := loggerFromContext(cmd.Context())

	csv := syntheticCSV(opts.sessions)
	if opts.data != "" {
		b, err := os.ReadFile(opts.data)
		if err != nil {
			return err
		}
		csv = string(b)
	}
	body, err := sonic.Marshal(map[string]any{"csv": csv})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	logger.Info("load test starting", "url", opts.url, "rps", opts.rps, "duration", opts.duration, "payload_bytes", len(body))

	results := fire(opts, body)
	if len(results) == 0 {
		return errors.New("no requests executed")
	}
	rep := summarize(results, opts)
	printReport(cmd.OutOrStdout(), rep)

	minRPS := float64(opts.rps) * 0.98
	if rep.achievedRPS >= minRPS && rep.p90 < opts.p90 && rep.errs == 0 && rep.non2xx == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "PASS: meets %d RPS and P90 < %s\n", opts.rps, opts.p90)
		return nil
	}
	return errors.New("FAIL: does not meet target (or has request errors)")
}

func fire(opts loadtestOpts, body []byte) []loadResult {
	client := &http.Client{Timeout: opts.timeout}
	jobs := make(chan struct{}, opts.workers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]loadResult, 0, opts.rps*int(opts.duration.Seconds())+1)

	for i := 0; i < opts.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				r := send(client, opts.url, body)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
		}()
	}

	ticker := time.NewTicker(time.Second / time.Duration(opts.rps))
	defer ticker.Stop()
	deadline := time.Now().Add(opts.duration)
	for now := range ticker.C {
		if now.After(deadline) {
			break
		}
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()
	return results
}

func send(client *http.Client, url string, body []byte) loadResult {
	start := time.Now()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return loadResult{latency: time.Since(start), err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	lat := time.Since(start)
	if err != nil {
		return loadResult{latency: lat, err: err}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return loadResult{latency: lat, status: resp.StatusCode}
}

func summarize(results []loadResult, opts loadtestOpts) loadReport {
	rep := loadReport{targetRPS: opts.rps, duration: opts.duration, requests: len(results)}
	latencies := make([]time.Duration, 0, len(results))
	for _, r := range results {
		latencies = append(latencies, r.latency)
		switch {
		case r.err != nil:
			rep.errs++
		case r.status >= 200 && r.status < 300:
			rep.ok2xx++
		default:
			rep.non2xx++
		}
	}
	slices.Sort(latencies)
	rep.p50 = percentile(latencies, 50)
	rep.p90 = percentile(latencies, 90)
	rep.p99 = percentile(latencies, 99)
	rep.avg = average(latencies)
	if opts.duration > 0 {
		rep.achievedRPS = float64(len(latencies)) / opts.duration.Seconds()
	}
	return rep
}

func printReport(w io.Writer, rep loadReport) {
	fmt.Fprintf(w, "Load test finished\n")
	fmt.Fprintf(w, "- target_rps: %d\n", rep.targetRPS)
	fmt.Fprintf(w, "- achieved_rps: %.2f\n", rep.achievedRPS)
	fmt.Fprintf(w, "- duration: %s\n", rep.duration)
	fmt.Fprintf(w, "- requests: %d\n", rep.requests)
	fmt.Fprintf(w, "- 2xx: %d\n", rep.ok2xx)
	fmt.Fprintf(w, "- non_2xx: %d\n", rep.non2xx)
	fmt.Fprintf(w, "- errors: %d\n", rep.errs)
	fmt.Fprintf(w, "- avg_ms: %.3f\n", ms(rep.avg))
	fmt.Fprintf(w, "- p50_ms: %.3f\n", ms(rep.p50))
	fmt.Fprintf(w, "- p90_ms: %.3f\n", ms(rep.p90))
	fmt.Fprintf(w, "- p99_ms: %.3f\n", ms(rep.p99))
}

// syntheticCSV builds n sessions cycling through a few typical solution paths.
func syntheticCSV(n int) string {
	paths := [][]string{
		{"Start", "EquationAnswer", "FinalAnswer", "DoneButton"},
		{"Start", "EquationAnswer", "EquationAnswer", "FinalAnswer", "DoneButton"},
		{"Start", "FinalAnswer", "DoneButton"},
		{"Start", "Hint", "EquationAnswer", "FinalAnswer", "DoneButton"},
	}
	outcomes := []string{"OK", "ERROR", "OK", "INITIAL_HINT", "OK", "JIT"}
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	var b strings.Builder
	b.WriteString("Anon Student Id,Session Id,Time,Step Name,Outcome,CF (Workspace Progress Status),Problem Name\n")
	for i := 0; i < n; i++ {
		for j, step := range paths[i%len(paths)] {
			ts := base.Add(time.Duration(i)*time.Minute + time.Duration(j)*time.Second)
			fmt.Fprintf(&b, "stu-%d,sess-%d,%s,%s,%s,GRADUATED,p%d\n",
				i%37, i, ts.Format("2006-01-02 15:04:05"), step, outcomes[(i+j)%len(outcomes)], i%3)
		}
	}
	return b.String()
}

func percentile(items []time.Duration, p int) time.Duration {
	if len(items) == 0 {
		return 0
	}
	idx := (len(items) - 1) * p / 100
	return items[idx]
}

func average(items []time.Duration) time.Duration {
	if len(items) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range items {
		total += d
	}
	return total / time.Duration(len(items))
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
