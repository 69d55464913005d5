package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rideops/callcenter/internal/domain"
)

// ActivityFilter narrows activity log listings.
type ActivityFilter struct {
	AgentID *string
	Types   []domain.ActivityType
	Limit   int
}

// ActivityRepository stores append-only audit entries.
type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityLog) error
	List(ctx context.Context, filter ActivityFilter) ([]domain.ActivityLog, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	const query = `
        INSERT INTO agent_activity_logs (agent_id, activity_type, details)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.AgentID,
		entry.ActivityType,
		entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *activityRepository) List(ctx context.Context, filter ActivityFilter) ([]domain.ActivityLog, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("agent_id=$%d", len(args)))
	}
	if len(filter.Types) > 0 {
		clauses = append(clauses, inClause("activity_type", filter.Types, &args))
	}
	limit, _ := normalizePage(filter.Limit, 0, 50)
	query := fmt.Sprintf(`
        SELECT id, agent_id, activity_type, details, created_at
        FROM agent_activity_logs WHERE %s ORDER BY created_at DESC LIMIT %d`, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActivityLog
	for rows.Next() {
		var entry domain.ActivityLog
		if err := rows.Scan(
			&entry.ID,
			&entry.AgentID,
			&entry.ActivityType,
			&entry.Details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
