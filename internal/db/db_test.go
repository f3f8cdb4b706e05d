package db

import (
	"context"
	"testing"

	"github.com/naumangoraya/sos/internal/config"
	"github.com/naumangoraya/sos/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=on",
		},
	}
}

func TestConnectMigrateSeed(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	conn, err := Connect(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := Migrate(conn, cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Ping(ctx, conn); err != nil {
		t.Fatalf("ping: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := Seed(ctx, conn); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	counts := map[any]int64{
		&models.User{}:     2,
		&models.Store{}:    2,
		&models.Item{}:     3,
		&models.Customer{}: 2,
		&models.Supplier{}: 2,
	}
	for m, want := range counts {
		var got int64
		if err := conn.Model(m).Count(&got).Error; err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%T: got %d rows, want %d", m, got, want)
		}
	}

	var admin models.User
	if err := conn.Where("username = ?", "admin").Take(&admin).Error; err != nil {
		t.Fatal(err)
	}
	if !admin.IsAdmin() || !admin.IsActive {
		t.Fatalf("unexpected admin %+v", admin)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("admin123")) != nil {
		t.Fatal("admin password not hashed with bcrypt")
	}
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{`"postgres://u:p@h/db"`, "postgres://u:p@h/db"},
		{"host=h  user=u dbname=d", "host=h user=u dbname=d sslmode=disable"},
		{"host=h user=u dbname=d sslmode=require", "host=h user=u dbname=d sslmode=require"},
	}
	for _, tt := range tests {
		if got := NormalizeDSN(tt.in); got != tt.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToURLDSN(t *testing.T) {
	got := ToURLDSN("host=db port=5432 user=sos password=secret dbname=sos sslmode=disable")
	want := "postgres://sos:secret@db:5432/sos?sslmode=disable"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := ToURLDSN("host=db"); got != "host=db" {
		t.Fatalf("incomplete dsn should pass through, got %q", got)
	}
}

func TestMaskDSN(t *testing.T) {
	if got := MaskDSN("host=h password=secret dbname=d"); got != "host=h password=*** dbname=d" {
		t.Fatalf("kv mask: %q", got)
	}
	if got := MaskDSN("postgres://u:secret@h/db"); got != "postgres://u:xxxxx@h/db" {
		t.Fatalf("url mask: %q", got)
	}
}
