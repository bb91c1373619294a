package etl

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cardpipe/internal/records"
)

// cleanedName derives the cleaned-output file name from an input batch name:
// Clientes-2026-01-15.csv -> Clientes-2026-01-15.cleaned.csv.
func cleanedName(input string) string {
	return strings.TrimSuffix(input, ".csv") + ".cleaned.csv"
}

// writeTable writes rows to path as CSV with the given column order.
// Missing or nil cells become empty fields. The file is created or
// truncated, so re-runs overwrite previous output.
func writeTable(path string, columns []string, rows []records.Record, comma rune) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = comma
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	line := make([]string, len(columns))
	for _, rec := range rows {
		for i, col := range columns {
			line[i] = ""
			if v, ok := rec[col]; ok && v != nil {
				line[i] = fmt.Sprint(v)
			}
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
