package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rideops/callcenter/internal/domain"
)

// EscalationFilter defines query params for escalation listing.
type EscalationFilter struct {
	Statuses []domain.EscalationStatus
	TicketID *string
	Limit    int
	Offset   int
}

// EscalationPatch lists the columns a conditional update writes.
type EscalationPatch struct {
	Status        domain.EscalationStatus
	EscalatedTo   *string
	OTPVerifiedAt *time.Time
}

// EscalationRepository persists emergency escalations. Rows are never deleted.
type EscalationRepository interface {
	// CreateIfAbsent inserts the escalation unless one already exists for the
	// ticket, in which case it returns ErrDuplicate.
	CreateIfAbsent(ctx context.Context, escalation *domain.Escalation) error
	GetByID(ctx context.Context, id string) (*domain.Escalation, error)
	GetByTicket(ctx context.Context, ticketID string) (*domain.Escalation, error)
	List(ctx context.Context, filter EscalationFilter) ([]domain.Escalation, error)
	// UpdateIfStatus applies patch only while the escalation is in status from.
	UpdateIfStatus(ctx context.Context, id string, from domain.EscalationStatus, patch EscalationPatch) (bool, error)
	CountByStatus(ctx context.Context) (map[domain.EscalationStatus]int, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository instantiates the repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

const escalationColumns = `id, ticket_id, escalated_by, escalated_to, reason, otp_code, status, otp_verified_at, created_at`

func (r *escalationRepository) CreateIfAbsent(ctx context.Context, escalation *domain.Escalation) error {
	// The unique index on ticket_id backs the NOT EXISTS check under races.
	const query = `
        INSERT INTO emergency_escalations (ticket_id, escalated_by, escalated_to, reason, otp_code, status)
        SELECT $1,$2,NULL,$3,$4,$5
        WHERE NOT EXISTS (SELECT 1 FROM emergency_escalations WHERE ticket_id=$1)
        ON CONFLICT (ticket_id) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		escalation.TicketID,
		escalation.EscalatedBy,
		escalation.Reason,
		escalation.OTPCode,
		escalation.Status,
	).Scan(&escalation.ID, &escalation.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	return err
}

func (r *escalationRepository) GetByID(ctx context.Context, id string) (*domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM emergency_escalations WHERE id=$1`
	return scanEscalation(r.pool.QueryRow(ctx, query, id))
}

func (r *escalationRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM emergency_escalations WHERE ticket_id=$1`
	return scanEscalation(r.pool.QueryRow(ctx, query, ticketID))
}

func (r *escalationRepository) List(ctx context.Context, filter EscalationFilter) ([]domain.Escalation, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, inClause("status", filter.Statuses, &args))
	}
	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("ticket_id=$%d", len(args)))
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 50)
	query := fmt.Sprintf(`SELECT %s FROM emergency_escalations WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		escalationColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Escalation
	for rows.Next() {
		escalation, err := scanEscalation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *escalation)
	}
	return result, rows.Err()
}

func (r *escalationRepository) UpdateIfStatus(ctx context.Context, id string, from domain.EscalationStatus, patch EscalationPatch) (bool, error) {
	const query = `
        UPDATE emergency_escalations
        SET status=$1, escalated_to=COALESCE($2, escalated_to), otp_verified_at=COALESCE($3, otp_verified_at)
        WHERE id=$4 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query, patch.Status, patch.EscalatedTo, patch.OTPVerifiedAt, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *escalationRepository) CountByStatus(ctx context.Context) (map[domain.EscalationStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM emergency_escalations GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.EscalationStatus]int{}
	for rows.Next() {
		var (
			status domain.EscalationStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanEscalation(row pgx.Row) (*domain.Escalation, error) {
	var escalation domain.Escalation
	if err := row.Scan(
		&escalation.ID,
		&escalation.TicketID,
		&escalation.EscalatedBy,
		&escalation.EscalatedTo,
		&escalation.Reason,
		&escalation.OTPCode,
		&escalation.Status,
		&escalation.OTPVerifiedAt,
		&escalation.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &escalation, nil
}
