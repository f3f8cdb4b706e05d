package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsInDevMode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEV", "true")

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != "5000" {
		t.Errorf("port = %q, want 5000", c.Server.Port)
	}
	if c.Database.Driver != "postgres" || c.Database.Port != 5432 {
		t.Errorf("unexpected database defaults: %+v", c.Database)
	}
	if c.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %v", c.Auth.TokenTTL)
	}
	if !c.Metrics.Enabled {
		t.Error("metrics should default to enabled")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_NAME", "sos.db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("MIGRATIONS", "1")

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != "9090" {
		t.Errorf("port = %q", c.Server.Port)
	}
	if c.Database.Driver != "sqlite" || c.Database.ConnString() != "sos.db" {
		t.Errorf("unexpected sqlite config: %+v", c.Database)
	}
	if c.Auth.TokenTTL != 90*time.Minute {
		t.Errorf("token ttl = %v", c.Auth.TokenTTL)
	}
	if !c.App.Migrations {
		t.Error("MIGRATIONS=1 should enable sql migrations")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "sos.yaml")
	yaml := "app:\n  dev: true\nlog:\n  level: debug\n  format: json\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Log.Level != "debug" || c.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", c.Log)
	}
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEV", "false")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	c := &Config{Database: DatabaseConfig{Driver: "mysql"}, Auth: AuthConfig{JWTSecret: "x"}}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for mysql driver")
	}
}

func TestPostgresConnStrings(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "sos", SSLMode: "disable"}
	if got := d.ConnString(); got != "host=db port=5432 user=u password=p@ss dbname=sos sslmode=disable" {
		t.Errorf("ConnString() = %q", got)
	}
	if got := d.URL(); got != "postgres://u:p%40ss@db:5432/sos?sslmode=disable" {
		t.Errorf("URL() = %q", got)
	}
	d.DSN = "postgres://override"
	if d.ConnString() != "postgres://override" {
		t.Error("explicit DSN should win")
	}
}
