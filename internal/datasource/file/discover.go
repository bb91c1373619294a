package file

import (
	"fmt"
	"os"
	"regexp"
	"sort"
)

// Batch file naming convention: entity name plus the extract date.
var (
	customerPattern = regexp.MustCompile(`^Clientes-\d{4}-\d{2}-\d{2}\.csv$`)
	cardPattern     = regexp.MustCompile(`^Tarjetas-\d{4}-\d{2}-\d{2}\.csv$`)
)

// Discovery is the result of scanning an input directory.
type Discovery struct {
	// Customers and Cards hold matching file names sorted lexicographically,
	// which for the embedded date is also chronological. Batches are later
	// processed in this order, so last writer per customer wins.
	Customers []string
	Cards     []string

	// Ignored lists entries that match neither pattern.
	Ignored []string
}

// Discover scans dir for batch files following the naming convention.
func Discover(dir string) (Discovery, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Discovery{}, fmt.Errorf("read input dir: %w", err)
	}

	var d Discovery
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case customerPattern.MatchString(name):
			d.Customers = append(d.Customers, name)
		case cardPattern.MatchString(name):
			d.Cards = append(d.Cards, name)
		default:
			d.Ignored = append(d.Ignored, name)
		}
	}
	sort.Strings(d.Customers)
	sort.Strings(d.Cards)
	sort.Strings(d.Ignored)
	return d, nil
}
