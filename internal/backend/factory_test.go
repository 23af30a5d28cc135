package backend

import (
	"context"
	"path/filepath"
	"testing"

	"kharcha/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		want    BackendType
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "memory", cfg: &config.Config{DataBackend: "memory", SeedDir: "seed"}, want: MemoryBackend},
		{name: "sqlite", cfg: &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"}, want: SQLiteBackend},
		{name: "unknown backend", cfg: &config.Config{DataBackend: "postgres"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Type != tt.want {
				t.Errorf("Type = %s, want %s", got.Type, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "sqlite without path", cfg: Config{Type: SQLiteBackend}, wantErr: true},
		{name: "amqp without queue", cfg: Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "kharcha"}, wantErr: true},
		{name: "unknown type", cfg: Config{Type: "redis"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Type: MemoryBackend, DataDirectory: t.TempDir()},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "kharcha.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			if res.Publisher != nil || res.Events != nil {
				t.Error("events should be disabled without an AMQP URL")
			}
			cats, err := res.Repository.ListCategories(ctx)
			if err != nil || len(cats) == 0 {
				t.Errorf("expected seeded categories, got %d, %v", len(cats), err)
			}
			if err := res.Cleanup(); err != nil {
				t.Errorf("Cleanup() error = %v", err)
			}
		})
	}
}
