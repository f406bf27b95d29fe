package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spendview/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:     "sqlite",
		APIBaseURL:      "http://api.test/api",
		UpstreamTimeout: 3 * time.Second,
		ViewTimezone:    "UTC",
		SQLiteDBPath:    "data/x.db",
		DataDir:         "seed",
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != SQLiteBackend || got.SQLiteDBPath != "data/x.db" || got.DataDirectory != "seed" {
		t.Fatalf("unexpected config: %+v", got)
	}
	if got.Location != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"api ok", Config{Type: APIBackend, APIBaseURL: "http://x/api"}, false},
		{"api without url", Config{Type: APIBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir(), Location: time.UTC})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Close()
		if res.Auth != nil {
			t.Error("memory backend has no authenticator")
		}
		cats, err := res.Backend.ListCategories(ctx)
		if err != nil || len(cats) == 0 {
			t.Fatalf("expected default categories, got %v err=%v", cats, err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{
			Type:         SQLiteBackend,
			SQLiteDBPath: filepath.Join(t.TempDir(), "db", "s.db"),
			Location:     time.UTC,
		})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Close()
		if _, err := res.Backend.ListExpenses(ctx); err != nil {
			t.Fatalf("ListExpenses: %v", err)
		}
	})

	t.Run("api", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: APIBackend, APIBaseURL: "http://localhost:7001/api"})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if res.Auth == nil {
			t.Error("api backend authenticates")
		}
		if err := res.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
}
