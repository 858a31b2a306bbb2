package config

import "testing"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ARCHIVE_DATABASE_URL", "postgres://localhost:5432/nbs_archive")
	t.Setenv("MASTER_DATABASE_URL", "postgres://localhost:5432/nbs_master")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("unexpected pool defaults: max=%d min=%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.RequestTimeoutSeconds != 30 {
		t.Errorf("expected default request timeout 30, got %d", cfg.RequestTimeoutSeconds)
	}
	if !cfg.IsDev() {
		t.Error("expected development mode by default")
	}
}

func TestLoad_MissingDatabaseURLs(t *testing.T) {
	t.Setenv("ARCHIVE_DATABASE_URL", "")
	t.Setenv("MASTER_DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when database URLs are missing")
	}

	t.Setenv("ARCHIVE_DATABASE_URL", "postgres://localhost:5432/nbs_archive")
	if _, err := Load(); err == nil {
		t.Error("expected error when master URL is missing")
	}
}

func TestLoad_ProductionRequiresAuthSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when AUTH_SECRET is missing in production")
	}

	t.Setenv("AUTH_SECRET", "super-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IsDev() {
		t.Error("expected production mode")
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "https://reports.example.org,https://dash.example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.CORSOrigins)
	}
}
