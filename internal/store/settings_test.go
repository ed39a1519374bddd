package store

import (
	"context"
	"testing"

	"github.com/engineering-ims/ims/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// First call should generate a secret.
	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	// Second call should return the same secret.
	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSettings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, ok, err := GetSetting(ctx, database, "currency")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected unset setting")
	}

	if err := SetSetting(ctx, database, "currency", "EUR"); err != nil {
		t.Fatal(err)
	}
	if err := SetSetting(ctx, database, "currency", "USD"); err != nil {
		t.Fatal(err)
	}

	value, ok, err := GetSetting(ctx, database, "currency")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || value != "USD" {
		t.Fatalf("expected USD, got %q (set=%v)", value, ok)
	}
}
