package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	if !isUniqueViolation(dup) {
		t.Errorf("23505 should be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert user: %w", dup)) {
		t.Errorf("wrapped 23505 should be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23502"}) {
		t.Errorf("not-null violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) || isUniqueViolation(nil) {
		t.Errorf("plain errors are not unique violations")
	}
}

func TestPayloadSHA256(t *testing.T) {
	got := PayloadSHA256([]byte(`{}`))
	if want := "44136fa355b3678a1146ad16f7e8649e94fb4fc21fe77e8310c060f61caaff8a"; got != want {
		t.Errorf("sha256: got %s, want %s", got, want)
	}
	if PayloadSHA256([]byte(`{"a":1}`)) == got {
		t.Errorf("different payloads share a digest")
	}
}

func TestMigrationsCreateBothTables(t *testing.T) {
	var users, snaps bool
	for _, m := range migrations {
		switch {
		case strings.Contains(m, "CREATE TABLE IF NOT EXISTS users"):
			users = true
		case strings.Contains(m, "CREATE TABLE IF NOT EXISTS provider_raw_snapshots"):
			snaps = true
		}
	}
	if !users || !snaps {
		t.Errorf("users=%v snapshots=%v", users, snaps)
	}
}
