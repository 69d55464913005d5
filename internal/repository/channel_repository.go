package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rideops/callcenter/internal/domain"
)

// ChannelFilter defines query params for channel listing.
type ChannelFilter struct {
	Statuses    []domain.ChannelStatus
	Unassigned  bool
	AgentID     *string
	OldestFirst bool
	Limit       int
	Offset      int
}

// ChannelRepository persists inbound customer contacts.
type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id string) (*domain.Channel, error)
	List(ctx context.Context, filter ChannelFilter) ([]domain.Channel, error)
	// Claim hands an active, unheld channel to agentID. It reports false when
	// the channel is gone, ended or already held.
	Claim(ctx context.Context, id, agentID string) (bool, error)
}

type channelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository instantiates the repository.
func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepository{pool: pool}
}

const channelColumns = `id, type, status, agent_id, ride_id, driver_phone_ref, passenger_phone_ref, external_id, started_at, ended_at`

func (r *channelRepository) Create(ctx context.Context, channel *domain.Channel) error {
	const query = `
        INSERT INTO communication_channels (type, status, ride_id, driver_phone_ref, passenger_phone_ref, external_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, started_at`
	return r.pool.QueryRow(ctx, query,
		channel.Type,
		channel.Status,
		channel.RideID,
		channel.DriverPhoneRef,
		channel.PassengerPhoneRef,
		channel.ExternalID,
	).Scan(&channel.ID, &channel.StartedAt)
}

func (r *channelRepository) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM communication_channels WHERE id=$1`
	return scanChannel(r.pool.QueryRow(ctx, query, id))
}

func (r *channelRepository) List(ctx context.Context, filter ChannelFilter) ([]domain.Channel, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, inClause("status", filter.Statuses, &args))
	}
	if filter.Unassigned {
		clauses = append(clauses, "agent_id IS NULL")
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("agent_id=$%d", len(args)))
	}
	order := "DESC"
	if filter.OldestFirst {
		order = "ASC"
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 50)
	query := fmt.Sprintf(`SELECT %s FROM communication_channels WHERE %s ORDER BY started_at %s LIMIT %d OFFSET %d`,
		channelColumns, strings.Join(clauses, " AND "), order, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Channel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *channel)
	}
	return result, rows.Err()
}

func (r *channelRepository) Claim(ctx context.Context, id, agentID string) (bool, error) {
	const query = `
        UPDATE communication_channels SET agent_id=$1
        WHERE id=$2 AND agent_id IS NULL AND status='active'`
	cmd, err := r.pool.Exec(ctx, query, agentID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanChannel(row pgx.Row) (*domain.Channel, error) {
	var channel domain.Channel
	if err := row.Scan(
		&channel.ID,
		&channel.Type,
		&channel.Status,
		&channel.AgentID,
		&channel.RideID,
		&channel.DriverPhoneRef,
		&channel.PassengerPhoneRef,
		&channel.ExternalID,
		&channel.StartedAt,
		&channel.EndedAt,
	); err != nil {
		return nil, err
	}
	return &channel, nil
}
