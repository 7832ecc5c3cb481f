package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/processor"
	"github.com/roster-import-api/internal/service"
)

type importOptions struct {
	entity string
	file   string
	userID string
	apply  bool
}

type importOutput struct {
	Command    string              `json:"command"`
	DurationMS int64               `json:"duration_ms"`
	Run        *models.ImportRun   `json:"run,omitempty"`
	Error      string              `json:"error,omitempty"`
	Errors     []csverror.CSVError `json:"errors,omitempty"`
}

func entityNames() []string {
	return processor.Entities()
}

// declaredType is what a browser would send for the file: text/csv for a
// .csv name, the sniffed type otherwise
func declaredType(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "text/csv", nil
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

// runImport imports one file and reports the outcome on out. The returned
// error is non-nil whenever the file was not accepted.
func runImport(ctx context.Context, svc service.ImportService, opts importOptions, out io.Writer) error {
	mt, err := declaredType(opts.file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.file, err)
	}

	path := opts.file
	upload := csvreader.Upload{
		Filename: filepath.Base(path),
		Mimetype: mt,
		Encoding: "7bit",
		Open:     func() (io.ReadCloser, error) { return os.Open(path) },
	}

	start := time.Now()
	run, importErr := svc.Import(ctx, &service.ImportRequest{
		Entity:       opts.entity,
		Upload:       upload,
		DryRun:       !opts.apply,
		ActingUserID: opts.userID,
	})

	result := importOutput{
		Command:    "import " + opts.entity,
		DurationMS: time.Since(start).Milliseconds(),
		Run:        run,
	}
	if importErr != nil {
		result.Error = importErr.Error()
		if agg, ok := csverror.AsAggregate(importErr); ok {
			result.Errors = agg.Errors
		}
	}
	if err := writeJSON(out, result); err != nil {
		return err
	}

	if errors.Is(importErr, service.ErrUnknownEntity) {
		return fmt.Errorf("%w (one of %v)", importErr, entityNames())
	}
	return importErr
}
