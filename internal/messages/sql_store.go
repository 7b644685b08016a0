package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const messageColumns = `id, name, email, body, status, source, created_at, updated_at`

// SQLStore persists messages in the contact_messages table.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	if db == nil {
		panic("messages: sql db required")
	}
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) Create(ctx context.Context, m Message) (*Message, error) {
	m.ID = uuid.NewString()
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		m.ID, m.Name, m.Email, m.Body, string(m.Status), string(m.Source), now)
	if err != nil {
		return nil, fmt.Errorf("messages: insert: %w", err)
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	return &m, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Message, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM contact_messages WHERE id = $1`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("messages: select: %w", err)
	}
	return m, nil
}

func (s *SQLStore) UpdateStatus(ctx context.Context, id string, status Status) (*Message, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE contact_messages SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+messageColumns,
		id, string(status), s.now())
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("messages: update status: %w", err)
	}
	return m, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("messages: delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, f Filter) ([]Message, error) {
	var (
		clauses []string
		args    []any
	)
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses = append(statuses, string(st))
		}
		args = append(args, pq.Array(statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if f.Source != "" {
		args = append(args, string(f.Source))
		clauses = append(clauses, fmt.Sprintf("source = $%d", len(args)))
	}
	query := `SELECT ` + messageColumns + ` FROM contact_messages`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("messages: list: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("messages: scan: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var (
		m      Message
		status string
		source string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &status, &source, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Status = Status(status)
	m.Source = Source(source)
	m.HTML = Paragraphs(m.Body)
	return &m, nil
}

var _ Store = (*SQLStore)(nil)
