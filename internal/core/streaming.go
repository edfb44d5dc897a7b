package core

// streaming.go prepares text uploads (CSV, JSON) for decoding.
//
// Spreadsheet tools on Windows prefix files with a byte order mark and
// occasionally save UTF-16. Legacy exports contain stray Latin-1 bytes.
// textReader normalizes all of that to clean UTF-8 without buffering the file.

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// errTooLarge is returned by sizeGuard once the limit is exceeded.
var errTooLarge = errors.New("file too large")

// textReader strips a UTF-8/UTF-16 byte order mark, decodes UTF-16 input and
// replaces invalid UTF-8 sequences with U+FFFD.
func textReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// sizeGuard fails reads once more than limit bytes were consumed.
// A limit <= 0 disables the guard.
type sizeGuard struct {
	r     io.Reader
	limit int64
	read  int64
}

func newSizeGuard(r io.Reader, limit int64) io.Reader {
	if limit <= 0 {
		return r
	}
	return &sizeGuard{r: r, limit: limit}
}

func (g *sizeGuard) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	g.read += int64(n)
	if g.read > g.limit {
		return n, fmt.Errorf("%w: exceeds %d bytes", errTooLarge, g.limit)
	}
	return n, err
}
