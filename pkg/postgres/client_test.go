package postgres

import (
	"testing"
	"time"
)

func TestDSN(t *testing.T) {
	got := DSN(ClientConfig{
		Host:           "db",
		Port:           5433,
		Database:       "signalpull",
		User:           "app",
		Password:       "s3cret",
		SSLMode:        "require",
		ConnectTimeout: 3 * time.Second,
	})
	want := "postgres://app:s3cret@db:5433/signalpull?connect_timeout=3&sslmode=require"
	if got != want {
		t.Fatalf("DSN = %s, want %s", got, want)
	}
}

func TestNewClientRequiresTarget(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatal("expected error without dsn or host")
	}
}
