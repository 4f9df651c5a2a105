package store

import (
	"context"
	"fmt"
)

// DefaultTriggerLimit bounds ListTriggers when no limit is given.
const DefaultTriggerLimit = 1000

// TriggerRecord is one persisted rule trigger.
type TriggerRecord struct {
	ID        string `db:"id" json:"id"`
	Subject   string `db:"subject" json:"subject"`
	RuleID    string `db:"rule_id" json:"rule_id"`
	Kind      string `db:"kind" json:"kind"`
	Message   string `db:"message" json:"message"`
	Seq       int64  `db:"seq" json:"seq"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// TriggerFilter narrows ListTriggers.
type TriggerFilter struct {
	Subject string
	RuleID  string
	Limit   int
}

// AppendTrigger inserts rec. Duplicate IDs are silently ignored.
// A zero CreatedAt is filled from the store clock.
func (s *Store) AppendTrigger(ctx context.Context, rec TriggerRecord) error {
	q, err := s.query("insert-trigger")
	if err != nil {
		return err
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = s.now().UnixMilli()
	}
	_, err = s.db.ExecContext(ctx, q,
		rec.ID,
		rec.Subject,
		rec.RuleID,
		rec.Kind,
		rec.Message,
		rec.Seq,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append trigger: %w", err)
	}
	return nil
}

// ListTriggers returns triggers in seq order.
func (s *Store) ListTriggers(ctx context.Context, f TriggerFilter) ([]TriggerRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultTriggerLimit
	}

	var (
		q    string
		args []any
		err  error
	)
	if f.RuleID != "" {
		q, err = s.query("list-triggers-for-rule")
		args = []any{f.Subject, f.RuleID, limit}
	} else {
		q, err = s.query("list-triggers")
		args = []any{f.Subject, limit}
	}
	if err != nil {
		return nil, err
	}

	out := []TriggerRecord{}
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	return out, nil
}

// MaxTriggerSeq returns the highest seq logged for subject, 0 if none.
// The runtime resumes its logical clock from here.
func (s *Store) MaxTriggerSeq(ctx context.Context, subject string) (int64, error) {
	q, err := s.query("max-trigger-seq")
	if err != nil {
		return 0, err
	}
	var seq int64
	if err := s.db.GetContext(ctx, &seq, q, subject); err != nil {
		return 0, fmt.Errorf("max trigger seq: %w", err)
	}
	return seq, nil
}
