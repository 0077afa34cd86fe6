package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed moderation store: warnings, user sets, the phrase whitelist,
// pending reviews and the review decision audit trail.
// It implements repo.ModerationRepo, repo.WhitelistRepo and repo.ReviewRepo.
type Store struct {
	db *sql.DB
}

// NewStore opens (and migrates) the database at dbPath
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers inside this process
	db.SetMaxOpenConns(1)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS warnings (
			user_id TEXT PRIMARY KEY,
			warning_count INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS moderation_sets (
			set_name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			added_at INTEGER NOT NULL,
			PRIMARY KEY (set_name, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS whitelist (
			phrase TEXT PRIMARY KEY,
			added_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pending_reviews (
			case_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			chat_id TEXT NOT NULL,
			opened_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS review_decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			decision TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			decided_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_review_decisions_user ON review_decisions(user_id, decided_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// IncrementWarnings adds one warning and resets to zero once the threshold is reached, in one transaction
func (s *Store) IncrementWarnings(ctx context.Context, userID string, threshold int) (int, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO warnings (user_id, warning_count, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			warning_count = warning_count + 1,
			updated_at = excluded.updated_at
		RETURNING warning_count
	`, userID, time.Now().Unix()).Scan(&count)
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment warnings: %w", err)
	}

	reset := count >= threshold
	if reset {
		if _, err := tx.ExecContext(ctx, `UPDATE warnings SET warning_count = 0 WHERE user_id = ?`, userID); err != nil {
			return 0, false, fmt.Errorf("failed to reset warnings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit warnings: %w", err)
	}
	return count, reset, nil
}

// GetWarnings returns the warning count, zero for unknown users
func (s *Store) GetWarnings(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT warning_count FROM warnings WHERE user_id = ?`, userID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query warnings: %w", err)
	}
	return count, nil
}

// SetWarnings overwrites the warning count
func (s *Store) SetWarnings(ctx context.Context, userID string, n int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warnings (user_id, warning_count, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			warning_count = excluded.warning_count,
			updated_at = excluded.updated_at
	`, userID, n, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set warnings: %w", err)
	}
	return nil
}

// AddToSet adds a user to a named set
func (s *Store) AddToSet(ctx context.Context, set domain.UserSet, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO moderation_sets (set_name, user_id, added_at) VALUES (?, ?, ?)
	`, string(set), userID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to add to %s: %w", set, err)
	}
	return nil
}

// RemoveFromSet removes a user from a named set
func (s *Store) RemoveFromSet(ctx context.Context, set domain.UserSet, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM moderation_sets WHERE set_name = ? AND user_id = ?`, string(set), userID)
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", set, err)
	}
	return nil
}

// SetContains reports set membership
func (s *Store) SetContains(ctx context.Context, set domain.UserSet, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM moderation_sets WHERE set_name = ? AND user_id = ?
	`, string(set), userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", set, err)
	}
	return true, nil
}

// ListSet returns the members of a set ordered by user id
func (s *Store) ListSet(ctx context.Context, set domain.UserSet) ([]string, error) {
	return s.queryStrings(ctx, `SELECT user_id FROM moderation_sets WHERE set_name = ? ORDER BY user_id`, string(set))
}

// ListPhrases returns all whitelisted phrases
func (s *Store) ListPhrases(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT phrase FROM whitelist ORDER BY added_at, phrase`)
}

// AddPhrase whitelists a phrase
func (s *Store) AddPhrase(ctx context.Context, phrase string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO whitelist (phrase, added_at) VALUES (?, ?)`, phrase, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to add phrase: %w", err)
	}
	return affected(res)
}

// RemovePhrase removes a whitelisted phrase
func (s *Store) RemovePhrase(ctx context.Context, phrase string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM whitelist WHERE phrase = ?`, phrase)
	if err != nil {
		return false, fmt.Errorf("failed to remove phrase: %w", err)
	}
	return affected(res)
}

// CreatePending stores the case mapping. The unique user_id column enforces one case per user.
func (s *Store) CreatePending(ctx context.Context, review *domain.PendingReview) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_reviews (case_id, user_id, chat_id, opened_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, review.CaseID, review.UserID, review.ChatID, review.OpenedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save pending review: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrReviewExists
	}
	return nil
}

// GetByUser returns the pending case for a user, or nil
func (s *Store) GetByUser(ctx context.Context, userID string) (*domain.PendingReview, error) {
	return s.getPending(ctx, `user_id = ?`, userID)
}

// GetByCase returns the pending case with the given id, or nil
func (s *Store) GetByCase(ctx context.Context, caseID string) (*domain.PendingReview, error) {
	return s.getPending(ctx, `case_id = ?`, caseID)
}

func (s *Store) getPending(ctx context.Context, where string, arg string) (*domain.PendingReview, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT case_id, user_id, chat_id, opened_at FROM pending_reviews WHERE `+where, arg)

	var r domain.PendingReview
	var openedAt int64
	err := row.Scan(&r.CaseID, &r.UserID, &r.ChatID, &openedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pending review: %w", err)
	}
	r.OpenedAt = time.Unix(openedAt, 0)
	return &r, nil
}

// DeletePending removes a case mapping in both directions
func (s *Store) DeletePending(ctx context.Context, caseID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_reviews WHERE case_id = ?`, caseID)
	if err != nil {
		return false, fmt.Errorf("failed to delete pending review: %w", err)
	}
	return affected(res)
}

// ListPending returns all pending cases, oldest first
func (s *Store) ListPending(ctx context.Context) ([]*domain.PendingReview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, user_id, chat_id, opened_at FROM pending_reviews ORDER BY opened_at, case_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reviews: %w", err)
	}
	defer rows.Close()

	var result []*domain.PendingReview
	for rows.Next() {
		var r domain.PendingReview
		var openedAt int64
		if err := rows.Scan(&r.CaseID, &r.UserID, &r.ChatID, &openedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending review: %w", err)
		}
		r.OpenedAt = time.Unix(openedAt, 0)
		result = append(result, &r)
	}
	return result, rows.Err()
}

// RecordDecision appends to the audit trail
func (s *Store) RecordDecision(ctx context.Context, rec *domain.ReviewDecisionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_decisions (case_id, user_id, decision, actor_id, outcome, decided_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.CaseID, rec.UserID, string(rec.Decision), rec.ActorID, string(rec.Outcome), rec.DecidedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// ListDecisions returns a user's decisions, newest first
func (s *Store) ListDecisions(ctx context.Context, userID string, limit int) ([]*domain.ReviewDecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, user_id, decision, actor_id, outcome, decided_at
		FROM review_decisions
		WHERE user_id = ?
		ORDER BY decided_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var result []*domain.ReviewDecisionRecord
	for rows.Next() {
		var rec domain.ReviewDecisionRecord
		var decision, outcome string
		var decidedAt int64
		if err := rows.Scan(&rec.CaseID, &rec.UserID, &decision, &rec.ActorID, &outcome, &decidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		rec.Decision = domain.Decision(decision)
		rec.Outcome = domain.ReviewOutcome(outcome)
		rec.DecidedAt = time.Unix(decidedAt, 0)
		result = append(result, &rec)
	}
	return result, rows.Err()
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}
