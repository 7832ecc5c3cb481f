package csvreader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Upload is what the transport layer hands over for one file
type Upload struct {
	Filename string
	Mimetype string
	Encoding string
	Open     func() (io.ReadCloser, error)
}

// Options bound the reading of one upload
type Options struct {
	MaxFileSize int64
}

const utf8BOM = "\uFEFF"

// Read guards, decodes and frames an upload into a Rows buffer.
//
// The decoded file is retained in memory in full so every processing pass
// can iterate it again; MaxFileSize therefore also bounds memory use.
func Read(ctx context.Context, up Upload, opts Options) (*Rows, error) {
	if err := CheckMimeType(up.Mimetype); err != nil {
		return nil, err
	}
	if up.Open == nil {
		return nil, fmt.Errorf("upload %q has no content", up.Filename)
	}

	src, err := up.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	guard := &sizeGuard{ctx: ctx, r: src, max: opts.MaxFileSize}
	buffered := bufio.NewReaderSize(guard, sniffLen)

	head, err := buffered.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		if guard.err != nil {
			return nil, guard.err
		}
		return nil, err
	}
	if err := checkContent(head); err != nil {
		return nil, err
	}

	decoded, err := decode(buffered, guard)
	if err != nil {
		return nil, err
	}
	if guard.total == 0 {
		return nil, newFileError(ErrEmptyFile, "Empty input file: %s", up.Filename)
	}

	return frame(decoded)
}

// decode copies r through a strict UTF-8 validator. The validator keeps an
// incomplete trailing sequence until the next chunk arrives and only fails
// on a sequence that can never become valid, or one truncated at EOF.
func decode(r io.Reader, guard *sizeGuard) ([]byte, error) {
	var out bytes.Buffer
	tr := transform.NewReader(r, encoding.UTF8Validator)
	if _, err := io.Copy(&out, tr); err != nil {
		if guard.err != nil {
			return nil, guard.err
		}
		return nil, newFileError(ErrInvalidEncoding, "File must be encoded as UTF-8")
	}
	return bytes.TrimPrefix(out.Bytes(), []byte(utf8BOM)), nil
}

// frame parses decoded CSV text into a header and trimmed rows
func frame(data []byte) (*Rows, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return &Rows{}, nil
	}
	if err != nil {
		return nil, malformed(err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	rows := &Rows{header: header}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}
		rows.records = append(rows.records, newRow(header, record))
	}
	return rows, nil
}

func malformed(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return newFileError(ErrMalformed, "File is not valid CSV: line %d: %v", perr.Line, perr.Err)
	}
	return newFileError(ErrMalformed, "File is not valid CSV: %v", err)
}

func newRow(header, record []string) Row {
	row := make(Row, len(header))
	for i, col := range header {
		if i >= len(record) || col == "" {
			continue
		}
		if _, seen := row[col]; seen {
			continue
		}
		if v := strings.TrimSpace(record[i]); v != "" {
			row[col] = v
		}
	}
	return row
}
