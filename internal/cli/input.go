package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/awmpietro/path-analysis/internal/ingest"
	"github.com/awmpietro/path-analysis/internal/pathgraph"
)

// readRows loads a .json, .csv or .tsv export; "-" reads CSV/TSV from stdin.
func readRows(path string, stdin io.Reader, delimiter string) ([]pathgraph.EventRow, error) {
	var opts ingest.Options
	switch delimiter {
	case "":
	case `\t`, "tab":
		opts.Delimiter = '\t'
	default:
		opts.Delimiter = []rune(delimiter)[0]
	}

	if path == "-" {
		return ingest.ReadCSV(stdin, opts)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ingest.ReadJSON(data)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.ReadCSV(f, opts)
}
