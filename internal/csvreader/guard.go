package csvreader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyFile       = errors.New("empty file")
	ErrInvalidEncoding = errors.New("invalid encoding")
	ErrMalformed       = errors.New("malformed csv")
)

// FileError is a fatal file-level problem. Message is shown to the caller
// as is; Kind is one of the sentinels above.
type FileError struct {
	Kind    error
	Message string
}

func (e *FileError) Error() string { return e.Message }

func (e *FileError) Unwrap() error { return e.Kind }

func newFileError(kind error, format string, args ...interface{}) *FileError {
	return &FileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AcceptedMimeTypes are the declared content types treated as CSV
var AcceptedMimeTypes = map[string]bool{
	"text/csv":                      true,
	"application/csv":               true,
	"text/x-csv":                    true,
	"application/x-csv":             true,
	"text/comma-separated-values":   true,
	"text/x-comma-separated-values": true,
	"application/vnd.ms-excel":      true,
	"text/plain":                    true,
}

// sniffLen is how much of the stream is inspected for binary signatures
const sniffLen = 3072

// CheckMimeType rejects uploads whose declared type isn't a CSV type
func CheckMimeType(mimeType string) error {
	base := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	if !AcceptedMimeTypes[base] {
		return newFileError(ErrInvalidFileType, "File must be a CSV, got %q", mimeType)
	}
	return nil
}

// checkContent rejects payloads that carry a recognisable non-text
// signature even though they were declared as CSV. Unrecognised bytes fall
// through to the UTF-8 decoder, which reports them precisely.
func checkContent(head []byte) error {
	if len(head) == 0 {
		return nil
	}
	detected := mimetype.Detect(head)
	if detected.Is("application/octet-stream") {
		return nil
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	return newFileError(ErrInvalidFileType, "File must be a CSV, content looks like %s", detected.String())
}

// sizeGuard counts bytes as they stream through and fails as soon as the
// running total passes max, so oversized uploads are never fully read.
type sizeGuard struct {
	ctx   context.Context
	r     io.Reader
	max   int64
	total int64
	err   error
}

func (g *sizeGuard) Read(p []byte) (int, error) {
	if g.err != nil {
		return 0, g.err
	}
	if err := g.ctx.Err(); err != nil {
		g.err = err
		return 0, err
	}

	n, err := g.r.Read(p)
	g.total += int64(n)
	if g.max > 0 && g.total > g.max {
		g.err = newFileError(ErrFileTooLarge, "File size exceeds max file size (%d KB)", g.max/1024)
		return 0, g.err
	}
	if err != nil && err != io.EOF {
		g.err = err
	}
	return n, err
}
