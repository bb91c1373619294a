// Package storage contains the storage-agnostic contract for the
// destination store. The pipeline core depends only on this interface;
// backend specifics live in subpackages.
package storage

import (
	"context"

	"cardpipe/internal/records"
)

// Repository is the destination store. Customer and card writes run in
// separate per-entity transactions, sequenced by the caller as
// schema → customer upsert → card replace.
type Repository interface {
	// EnsureSchema creates the destination tables when missing.
	EnsureSchema(ctx context.Context) error

	// UpsertCustomers inserts or updates one batch of customer rows keyed
	// by customer id, overwriting every non-key column on conflict.
	UpsertCustomers(ctx context.Context, recs []records.Record) (int64, error)

	// CustomerIDs returns the set of customer ids currently stored.
	CustomerIDs(ctx context.Context) (map[string]struct{}, error)

	// ReplaceCards atomically replaces the card set with the given rows:
	// truncate plus bulk insert inside one transaction.
	ReplaceCards(ctx context.Context, recs []records.Record) (int64, error)

	// Close releases the underlying connections.
	Close()
}
