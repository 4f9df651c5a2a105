package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/warden/internal/ir"
)

// BlobRecord is one stored condition-state blob.
type BlobRecord struct {
	Subject   string `db:"subject"`
	Blob      string `db:"blob"`
	Digest    string `db:"digest"`
	Revision  int64  `db:"revision"`
	UpdatedAt int64  `db:"updated_at"`
}

// LoadBlob returns the blob stored for subject, or ErrNotFound.
func (s *Store) LoadBlob(ctx context.Context, subject string) (*BlobRecord, error) {
	q, err := s.query("get-state-blob")
	if err != nil {
		return nil, err
	}
	var rec BlobRecord
	if err := s.db.GetContext(ctx, &rec, q, subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load blob: %w", err)
	}
	return &rec, nil
}

// SaveBlob replaces the blob for subject and returns the new revision.
// Revisions start at 1 and increase by one per save.
func (s *Store) SaveBlob(ctx context.Context, subject string, blob []byte) (int64, error) {
	upsert, err := s.query("upsert-state-blob")
	if err != nil {
		return 0, err
	}
	revision, err := s.query("get-state-revision")
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save blob: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	digest := ir.DigestBytes(ir.DomainStateBlob, blob)
	if _, err := tx.ExecContext(ctx, upsert, subject, string(blob), digest, s.now().UnixMilli()); err != nil {
		return 0, fmt.Errorf("save blob: %w", err)
	}

	var rev int64
	if err := tx.GetContext(ctx, &rev, revision, subject); err != nil {
		return 0, fmt.Errorf("save blob: read revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save blob: commit: %w", err)
	}
	return rev, nil
}

// DeleteBlob removes the blob for subject.
func (s *Store) DeleteBlob(ctx context.Context, subject string) error {
	q, err := s.query("delete-state-blob")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q, subject); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Subjects lists every subject with a stored blob.
func (s *Store) Subjects(ctx context.Context) ([]string, error) {
	q, err := s.query("list-subjects")
	if err != nil {
		return nil, err
	}
	var out []string
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return out, nil
}

// BlobBackend adapts one subject's row to state.Backend.
type BlobBackend struct {
	store   *Store
	subject string
}

// Backend returns the state backend for subject.
func (s *Store) Backend(subject string) *BlobBackend {
	return &BlobBackend{store: s, subject: subject}
}

// Load returns the stored blob, or nil when the subject has none.
func (b *BlobBackend) Load(ctx context.Context) ([]byte, error) {
	rec, err := b.store.LoadBlob(ctx, b.subject)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(rec.Blob), nil
}

// Save stores blob under the subject.
func (b *BlobBackend) Save(ctx context.Context, blob []byte) error {
	_, err := b.store.SaveBlob(ctx, b.subject, blob)
	return err
}
