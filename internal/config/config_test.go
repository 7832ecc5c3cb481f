package config

import "testing"

func TestLoad_ImportDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("CSV_MAX_FILESIZE", "")
	t.Setenv("MUTATION_MAX_INPUT_ARRAY_SIZE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("Expected DB host db.internal, got %s", cfg.Database.Host)
	}
	if cfg.Import.MaxInputArraySize != 50 {
		t.Errorf("Expected max input array size 50, got %d", cfg.Import.MaxInputArraySize)
	}
	if cfg.Import.MaxFileSize != 50*1024*1024 {
		t.Errorf("Expected 50MB max file size, got %d", cfg.Import.MaxFileSize)
	}
	if cfg.Import.Limits.OrganizationName != 35 {
		t.Errorf("Expected organization name limit 35, got %d", cfg.Import.Limits.OrganizationName)
	}
}

func TestLoad_ImportOverrides(t *testing.T) {
	t.Setenv("CSV_MAX_FILESIZE", "2048")
	t.Setenv("MUTATION_MAX_INPUT_ARRAY_SIZE", "10")
	t.Setenv("AGE_RANGE_MAX", "18")
	t.Setenv("SHORTCODE_MAX_LENGTH", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Import.MaxFileSize != 2048 {
		t.Errorf("Expected 2048, got %d", cfg.Import.MaxFileSize)
	}
	if cfg.Import.MaxInputArraySize != 10 {
		t.Errorf("Expected 10, got %d", cfg.Import.MaxInputArraySize)
	}
	if cfg.Import.AgeRangeHighMax != 18 {
		t.Errorf("Expected 18, got %d", cfg.Import.AgeRangeHighMax)
	}
	if cfg.Import.Limits.Shortcode != 10 {
		t.Errorf("Expected 10, got %d", cfg.Import.Limits.Shortcode)
	}
}

func TestImportConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ImportConfig)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *ImportConfig) {}},
		{name: "zero file size", mutate: func(c *ImportConfig) { c.MaxFileSize = 0 }, wantErr: true},
		{name: "zero batch size", mutate: func(c *ImportConfig) { c.MaxInputArraySize = 0 }, wantErr: true},
		{name: "no concurrent imports", mutate: func(c *ImportConfig) { c.MaxConcurrent = 0 }, wantErr: true},
		{name: "inverted age bounds", mutate: func(c *ImportConfig) { c.AgeRangeLowMin = 99; c.AgeRangeHighMax = 1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultImportConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
