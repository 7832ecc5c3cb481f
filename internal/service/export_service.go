package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	runs RunService
	log  zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(runs RunService, log zerolog.Logger) *exportService {
	return &exportService{
		runs: runs,
		log:  log.With().Str("service", "export").Logger(),
	}
}

// StreamErrors writes the error report of a run in the specified format
func (s *exportService) StreamErrors(ctx context.Context, w http.ResponseWriter, runID, format string) error {
	if format != "json" && format != "csv" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	errs, err := s.runs.GetRunErrors(ctx, runID)
	if err != nil {
		return err
	}

	s.log.Info().Str("run_id", runID).Str("format", format).Int("count", len(errs)).Msg("Streaming error report")

	filename := "import-" + runID + "-errors." + format
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	flusher, _ := w.(http.Flusher)

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		writer := csv.NewWriter(w)
		defer writer.Flush()

		if err := writer.Write([]string{"row", "column", "code", "message"}); err != nil {
			return err
		}
		for i, e := range errs {
			if err := writer.Write([]string{strconv.Itoa(e.Row), e.Column, e.Code, e.Message}); err != nil {
				return err
			}
			// Flush every 100 records for streaming
			if i%100 == 99 && flusher != nil {
				writer.Flush()
				flusher.Flush()
			}
		}
		return nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("["))
	for i, e := range errs {
		if i > 0 {
			w.Write([]byte(","))
		}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		w.Write(data)
		if i%100 == 99 && flusher != nil {
			flusher.Flush()
		}
	}
	w.Write([]byte("]"))
	return nil
}
