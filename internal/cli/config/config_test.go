package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config to be non-nil")
	}

	// Check defaults
	if cfg.Server.Host != "localhost" {
		t.Errorf("expected default host 'localhost', got %s", cfg.Server.Host)
	}

	if cfg.Server.Port != 7474 {
		t.Errorf("expected default port 7474, got %d", cfg.Server.Port)
	}

	if cfg.Cache.Backend != "memory" {
		t.Errorf("expected default cache backend 'memory', got %s", cfg.Cache.Backend)
	}

	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("expected default cache TTL 5m, got %s", cfg.Cache.TTL)
	}

	if cfg.Archive.Driver != "sqlite3" {
		t.Errorf("expected default archive driver 'sqlite3', got %s", cfg.Archive.Driver)
	}

	if cfg.Archive.DSN != "declkit.db" {
		t.Errorf("expected default archive DSN 'declkit.db', got %s", cfg.Archive.DSN)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	// Create temporary directory with config file
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	// Write config file
	configContent := `
server:
  host: 0.0.0.0
  port: 8080
cache:
  backend: redis
  ttl: 90s
  redis:
    addr: redis.internal:6379
    password: hunter2
    db: 3
archive:
  driver: pgx
  dsn: postgres://localhost/declkit
`
	os.WriteFile("declkit.yml", []byte(configContent), 0644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected host '0.0.0.0', got %s", cfg.Server.Host)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}

	if cfg.Cache.Backend != "redis" {
		t.Errorf("expected cache backend 'redis', got %s", cfg.Cache.Backend)
	}

	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("expected cache TTL 90s, got %s", cfg.Cache.TTL)
	}

	if cfg.Cache.Redis.Addr != "redis.internal:6379" {
		t.Errorf("expected redis addr 'redis.internal:6379', got %s", cfg.Cache.Redis.Addr)
	}

	if cfg.Cache.Redis.Password != "hunter2" {
		t.Errorf("expected redis password to be read, got %s", cfg.Cache.Redis.Password)
	}

	if cfg.Cache.Redis.DB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.Cache.Redis.DB)
	}

	if cfg.Archive.Driver != "pgx" {
		t.Errorf("expected archive driver 'pgx', got %s", cfg.Archive.Driver)
	}

	if cfg.Archive.DSN != "postgres://localhost/declkit" {
		t.Errorf("expected archive DSN from config, got %s", cfg.Archive.DSN)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.WriteFile("declkit.yml", []byte("server:\n  port: 0\n"), 0644)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for port 0, got nil")
	}
}

func TestLoadInvalidBackend(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.WriteFile("declkit.yml", []byte("cache:\n  backend: memcached\n"), 0644)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for unknown cache backend, got nil")
	}
}

func TestLoadInvalidDriver(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.WriteFile("declkit.yml", []byte("archive:\n  driver: mysql\n"), 0644)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for unsupported archive driver, got nil")
	}
}

func TestServerAddress(t *testing.T) {
	s := ServerConfig{Host: "localhost", Port: 7474}
	if s.Address() != "localhost:7474" {
		t.Errorf("expected 'localhost:7474', got %s", s.Address())
	}
}

func TestGetArchiveDSN(t *testing.T) {
	// Test with environment variable
	os.Setenv("DECLKIT_ARCHIVE_DSN", "postgres://env/declkit")
	defer os.Unsetenv("DECLKIT_ARCHIVE_DSN")

	dsn := GetArchiveDSN()
	if dsn != "postgres://env/declkit" {
		t.Errorf("expected DSN from environment, got %s", dsn)
	}
}

func TestGetArchiveDSNFromConfig(t *testing.T) {
	// Create temporary directory with config file
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	// Ensure no environment variable
	os.Unsetenv("DECLKIT_ARCHIVE_DSN")

	// Write config file
	configContent := `
archive:
  dsn: file:snapshots.db
`
	os.WriteFile("declkit.yml", []byte(configContent), 0644)

	dsn := GetArchiveDSN()
	if dsn != "file:snapshots.db" {
		t.Errorf("expected DSN from config, got %s", dsn)
	}
}
