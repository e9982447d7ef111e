package migrations_test

import (
	"context"
	"testing"

	"github.com/cozyartz/michiganspots/internal/database"
	"github.com/cozyartz/michiganspots/internal/migrations"
)

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	// Verify all tables exist by querying sqlite_master.
	want := []string{"challenges", "user_profiles", "submissions", "accepted_claims", "category_points", "badges", "user_badges"}

	for _, table := range want {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	first, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first == 0 {
		t.Error("first run applied nothing")
	}
	second, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
	if second != 0 {
		t.Errorf("second run applied %d migrations", second)
	}
}
