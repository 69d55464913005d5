package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rideops/callcenter/internal/domain"
)

// TicketFilter captures console search parameters.
type TicketFilter struct {
	AssignedAgentID *string
	Unassigned      bool
	Escalated       *bool
	Statuses        []domain.TicketStatus
	Priorities      []domain.TicketPriority
	Categories      []domain.TicketCategory
	SearchTerm      *string
	OldestFirst     bool
	Limit           int
	Offset          int
}

// TicketGuard is the precondition a conditional update must satisfy. A zero
// guard matches any existing ticket.
type TicketGuard struct {
	Unassigned bool
	Statuses   []domain.TicketStatus
}

// TicketPatch lists the columns a conditional update writes. Nil fields are
// left unchanged. FirstResponseAt is only written when the column is NULL.
type TicketPatch struct {
	Status          *domain.TicketStatus
	Priority        *domain.TicketPriority
	Category        *domain.TicketCategory
	AssignedAgentID *string
	EscalatedTo     *string
	ResolutionNotes *string
	ResolvedAt      *time.Time
	FirstResponseAt *time.Time
}

// TicketStats aggregates ticket counts for dashboards.
type TicketStats struct {
	ByStatus             map[domain.TicketStatus]int
	ByPriority           map[domain.TicketPriority]int
	ByCategory           map[domain.TicketCategory]int
	AvgFirstResponseSecs float64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// UpdateWhere applies patch only while guard holds. It reports false when
	// the ticket is missing or the guard no longer matches.
	UpdateWhere(ctx context.Context, id string, guard TicketGuard, patch TicketPatch) (bool, error)
	Stats(ctx context.Context) (TicketStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.subject, t.message, t.category, t.priority, t.status, t.assigned_agent_id,
               t.escalated_to, (SELECT e.id FROM emergency_escalations e WHERE e.ticket_id = t.id LIMIT 1),
               t.ride_id, t.driver_phone_ref, t.communication_channel_id, t.resolution_notes,
               t.created_at, t.updated_at, t.first_response_at, t.resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO support_tickets (subject, message, category, priority, status, assigned_agent_id, ride_id,
            driver_phone_ref, communication_channel_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Message,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedAgentID,
		ticket.RideID,
		ticket.DriverPhoneRef,
		ticket.CommunicationChannelID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM support_tickets t WHERE t.id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_agent_id=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "t.assigned_agent_id IS NULL")
	}
	if filter.Escalated != nil {
		exists := "EXISTS (SELECT 1 FROM emergency_escalations e WHERE e.ticket_id = t.id)"
		if *filter.Escalated {
			clauses = append(clauses, exists)
		} else {
			clauses = append(clauses, "NOT "+exists)
		}
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, inClause("t.status", filter.Statuses, &args))
	}
	if len(filter.Priorities) > 0 {
		clauses = append(clauses, inClause("t.priority", filter.Priorities, &args))
	}
	if len(filter.Categories) > 0 {
		clauses = append(clauses, inClause("t.category", filter.Categories, &args))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.subject) LIKE %s OR LOWER(COALESCE(t.driver_phone_ref, '')) LIKE %s)", placeholder, placeholder))
	}

	order := "DESC"
	if filter.OldestFirst {
		order = "ASC"
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 50)

	query := fmt.Sprintf(`SELECT %s FROM support_tickets t WHERE %s ORDER BY t.created_at %s LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), order, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateWhere(ctx context.Context, id string, guard TicketGuard, patch TicketPatch) (bool, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.AssignedAgentID != nil {
		set("assigned_agent_id", *patch.AssignedAgentID)
	}
	if patch.EscalatedTo != nil {
		set("escalated_to", *patch.EscalatedTo)
	}
	if patch.ResolutionNotes != nil {
		set("resolution_notes", *patch.ResolutionNotes)
	}
	if patch.ResolvedAt != nil {
		set("resolved_at", *patch.ResolvedAt)
	}
	if patch.FirstResponseAt != nil {
		args = append(args, *patch.FirstResponseAt)
		sets = append(sets, fmt.Sprintf("first_response_at=COALESCE(first_response_at, $%d)", len(args)))
	}

	args = append(args, id)
	clauses := []string{fmt.Sprintf("id=$%d", len(args))}
	if guard.Unassigned {
		clauses = append(clauses, "assigned_agent_id IS NULL")
	}
	if len(guard.Statuses) > 0 {
		clauses = append(clauses, inClause("status", guard.Statuses, &args))
	}

	query := fmt.Sprintf(`UPDATE support_tickets SET %s WHERE %s`, strings.Join(sets, ", "), strings.Join(clauses, " AND "))
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) Stats(ctx context.Context) (TicketStats, error) {
	stats := TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
		ByCategory: map[domain.TicketCategory]int{},
	}
	const grouped = `SELECT status, priority, category, COUNT(*) FROM support_tickets GROUP BY status, priority, category`
	rows, err := r.pool.Query(ctx, grouped)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var (
			status   domain.TicketStatus
			priority domain.TicketPriority
			category domain.TicketCategory
			count    int
		)
		if err := rows.Scan(&status, &priority, &category, &count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
		stats.ByCategory[category] += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	const latency = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (first_response_at - created_at))), 0)
        FROM support_tickets WHERE first_response_at IS NOT NULL`
	if err := r.pool.QueryRow(ctx, latency).Scan(&stats.AvgFirstResponseSecs); err != nil {
		return stats, err
	}
	return stats, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.Message,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedAgentID,
		&ticket.EscalatedTo,
		&ticket.EscalationID,
		&ticket.RideID,
		&ticket.DriverPhoneRef,
		&ticket.CommunicationChannelID,
		&ticket.ResolutionNotes,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func inClause[T ~string](column string, values []T, args *[]any) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, string(v))
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}

func normalizePage(limit, offset, fallback int) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
