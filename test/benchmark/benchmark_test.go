package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/mocks"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/repository"
	"github.com/roster-import-api/internal/service"
	"github.com/roster-import-api/internal/validation"
	"github.com/rs/zerolog"
)

// usersCSV generates a clean users file of n rows
func usersCSV(n int) []byte {
	var buf bytes.Buffer
	buf.WriteString("organization_name,user_given_name,user_family_name,user_email,user_gender,organization_role_name\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "Acme Academy,Student%d,Smith,student%06d@example.com,female,Student\n", i, i)
	}
	return buf.Bytes()
}

func upload(data []byte) csvreader.Upload {
	return csvreader.Upload{
		Filename: "users.csv",
		Mimetype: "text/csv",
		Encoding: "7bit",
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// BenchmarkCSVRead benchmarks guarding, decoding and framing
func BenchmarkCSVRead(b *testing.B) {
	data := usersCSV(1000)
	up := upload(data)
	opts := csvreader.Options{MaxFileSize: 50 * 1024 * 1024}

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	for i := 0; i < b.N; i++ {
		rows, err := csvreader.Read(context.Background(), up, opts)
		if err != nil {
			b.Fatalf("Read failed: %v", err)
		}
		if rows.Len() != 1000 {
			b.Fatalf("Expected 1000 rows, got %d", rows.Len())
		}
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkRowValidation benchmarks the static rules of one user row
func BenchmarkRowValidation(b *testing.B) {
	catalog := csverror.DefaultCatalog()
	validator := validation.NewRowValidator(catalog, zerolog.Nop())
	schema := validation.UserSchema(config.DefaultLimits())

	row := csvreader.Row{
		"organization_name":      "Acme Academy",
		"user_given_name":        "Ada",
		"user_family_name":       "Lovelace",
		"user_email":             "ada@example.com",
		"user_date_of_birth":     "12-2015",
		"user_gender":            "female",
		"organization_role_name": "Student",
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if errs := validator.Validate(row, i+1, schema); len(errs) > 0 {
			b.Fatalf("Unexpected errors: %v", errs)
		}
	}
}

// BenchmarkUsersImport benchmarks a full dry run import against the in-memory store
func BenchmarkUsersImport(b *testing.B) {
	data := usersCSV(500)

	store := mocks.NewMemStore()
	store.SeedOrganization(&models.Organization{ID: "org-1", Name: "Acme Academy", Status: models.StatusActive})
	repos := &repository.Repositories{Store: store, Runs: mocks.NewMockImportRunRepository()}
	cfg := &config.Config{Import: config.DefaultImportConfig()}
	services := service.NewServices(repos, mocks.NewMockAuthorizer(), cfg, zerolog.Nop())

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, err := services.Import.Import(context.Background(), &service.ImportRequest{
			Entity:       "users",
			Upload:       upload(data),
			DryRun:       true,
			ActingUserID: "user-1",
		})
		if err != nil {
			b.Fatalf("Import failed: %v", err)
		}
	}

	b.ReportMetric(float64(500*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkImportSlots benchmarks acquiring and releasing an import slot
func BenchmarkImportSlots(b *testing.B) {
	sem := make(chan struct{}, config.DefaultImportConfig().MaxConcurrent)

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			sem <- struct{}{}
			<-sem
		}
	})
}
