package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const appointmentColumns = `id, first_name, last_name, email, phone, date_of_birth, emergency_contact,
	appointment_type, preferred_date, preferred_time, doctor, reason, symptoms, previous_visit,
	has_insurance, insurance_provider, policy_number, status, created_at, updated_at`

// PostgresStore persists appointments in the appointments table.
type PostgresStore struct {
	db  rowQuerier
	now func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return newPostgresStoreWithQuerier(pool)
}

func newPostgresStoreWithQuerier(db rowQuerier) *PostgresStore {
	if db == nil {
		panic("appointments: querier required")
	}
	return &PostgresStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *PostgresStore) Create(ctx context.Context, sub Submission) (*Appointment, error) {
	a := Normalize(sub)
	now := s.now()
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
		RETURNING ` + appointmentColumns
	row := s.db.QueryRow(ctx, query,
		uuid.NewString(), a.FirstName, a.LastName, a.Email, a.Phone, a.DateOfBirth, a.EmergencyContact,
		string(a.AppointmentType), a.PreferredDate, a.PreferredTime, a.Doctor, a.Reason, a.Symptoms,
		a.PreviousVisit, a.HasInsurance, a.InsuranceProvider, a.PolicyNumber, string(StatusPending), now,
	)
	created, err := scanAppointment(row)
	if err != nil {
		return nil, persistErr("insert", err)
	}
	return created, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("select", err)
	}
	return appt, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, to Status) (*Appointment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransition(to) {
		return nil, &TransitionError{From: current.Status, To: to}
	}
	query := `UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + appointmentColumns
	updated, err := scanAppointment(s.db.QueryRow(ctx, query, id, string(to), s.now()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("update status", err)
	}
	return updated, nil
}

func (s *PostgresStore) Reschedule(ctx context.Context, id, date, timeOfDay string) (*Appointment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.Reschedulable() {
		return nil, ErrNotReschedulable
	}
	query := `UPDATE appointments SET preferred_date = $2, preferred_time = $3, updated_at = $4 WHERE id = $1 RETURNING ` + appointmentColumns
	updated, err := scanAppointment(s.db.QueryRow(ctx, query, id, date, timeOfDay, s.now()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("reschedule", err)
	}
	return updated, nil
}

func (s *PostgresStore) FindByFilter(ctx context.Context, f Filter) ([]Appointment, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		clauses = append(clauses, fmt.Sprintf("preferred_date = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, containsPattern(q))
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(first_name ILIKE $%[1]d ESCAPE '\' OR last_name ILIKE $%[1]d ESCAPE '\' OR email ILIKE $%[1]d ESCAPE '\' OR phone ILIKE $%[1]d ESCAPE '\')`, n))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, persistErr("scan", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row scanner) (*Appointment, error) {
	var (
		a        Appointment
		apptType string
		status   string
		date     time.Time
	)
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Phone, &a.DateOfBirth, &a.EmergencyContact,
		&apptType, &date, &a.PreferredTime, &a.Doctor, &a.Reason, &a.Symptoms, &a.PreviousVisit,
		&a.HasInsurance, &a.InsuranceProvider, &a.PolicyNumber, &status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AppointmentType = Type(apptType)
	a.Status = Status(status)
	a.PreferredDate = date.Format(dateLayout)
	return &a, nil
}

var _ Store = (*PostgresStore)(nil)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern that matches q literally anywhere.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
