package csv

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeFallback returns b unchanged when it is valid UTF-8; otherwise it
// re-decodes the bytes as Windows-1252. Every byte sequence is valid
// Windows-1252, so the fallback cannot fail, only mis-render characters
// outside that set.
func DecodeFallback(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return b
	}
	return decoded
}
