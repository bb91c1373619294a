package file

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns a fast content hash of the file at path, used to
// detect and skip byte-identical inputs within a run. Not a substitute for
// the salted card digest; this one is not cryptographic.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}
