package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Snapshot is one raw provider response kept for audit.
type Snapshot struct {
	Provider     string
	Endpoint     string
	PropertyKey  string
	PayloadJSON  []byte
	Shape        string
	SoldCount    int
	PendingCount int
	ActiveCount  int
	RequestedBy  string
}

// PayloadSHA256 is the hex digest stored next to the payload.
func PayloadSHA256(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// WriteSnapshot stores a snapshot and returns its id. Snapshots are
// append-only; nothing reads them back to answer lookups.
func (s *Store) WriteSnapshot(ctx context.Context, in Snapshot) (string, error) {
	if s.DB == nil {
		return "", errors.New("nil db")
	}
	var requestedBy any
	if in.RequestedBy != "" {
		requestedBy = in.RequestedBy
	}

	var id string
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO provider_raw_snapshots
			(provider, endpoint, property_key, payload, payload_sha256, shape, sold_count, pending_count, active_count, requested_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`,
		in.Provider, in.Endpoint, in.PropertyKey, string(in.PayloadJSON), PayloadSHA256(in.PayloadJSON),
		in.Shape, in.SoldCount, in.PendingCount, in.ActiveCount, requestedBy,
	).Scan(&id)
	return id, err
}
