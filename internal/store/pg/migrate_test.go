package pg

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/migrations/postgres"
)

func TestParseMigrations_Order(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql":  {Data: []byte("SELECT 2")},
		"0001_a.sql":  {Data: []byte("SELECT 1")},
		"README.md":   {Data: []byte("ignored")},
		"10_late.sql": {Data: []byte("SELECT 10")},
	}
	migs, err := ParseMigrations(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	if migs[0].Version != 1 || migs[1].Version != 2 || migs[2].Version != 10 {
		t.Fatalf("bad order: %+v", migs)
	}
	if migs[0].Name != "a" {
		t.Fatalf("bad name: %q", migs[0].Name)
	}
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	migs, err := ParseMigrations(postgres.FS)
	if err != nil {
		t.Fatal(err)
	}
	if len(migs) < 3 {
		t.Fatalf("expected embedded migrations, got %d", len(migs))
	}
}

func TestMapErr(t *testing.T) {
	if !repository.IsNotFound(mapErr(pgx.ErrNoRows)) {
		t.Fatal("ErrNoRows should map to ErrNotFound")
	}
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "identities_tenant_provider_external_uq"}
	if !repository.IsConflict(mapErr(dup)) {
		t.Fatal("23505 should map to ErrConflict")
	}
	wrapped := errors.Join(errors.New("ctx"), dup)
	if !repository.IsConflict(mapErr(wrapped)) {
		t.Fatal("wrapped 23505 should map to ErrConflict")
	}
	if mapErr(nil) != nil {
		t.Fatal("nil stays nil")
	}
}
