package rejects

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"cardpipe/internal/records"
)

// Output file names, one per origin.
const (
	CustomerFile = "rows_rejected_clientes.csv"
	CardFile     = "rows_rejected_tarjetas.csv"
)

// WriteFiles regenerates both per-origin reject files under dir. Files are
// truncated, never appended, so a re-run always reflects the current run
// only; an origin with no rejects still gets a header-only file, replacing
// any stale output from a previous run.
func WriteFiles(dir string, customers, cards []records.Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create reject dir: %w", err)
	}
	if err := writeOrigin(filepath.Join(dir, CustomerFile), OriginCustomer, customers); err != nil {
		return err
	}
	return writeOrigin(filepath.Join(dir, CardFile), OriginCard, cards)
}

func writeOrigin(path string, origin Origin, rows []records.Record) error {
	cols := Project(origin, rows)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write(cols); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	line := make([]string, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			if s, ok := r.Str(c); ok {
				line[i] = s
			} else {
				line[i] = ""
			}
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
