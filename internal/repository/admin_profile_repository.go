package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rideops/callcenter/internal/domain"
)

// AdminProfileRepository defines persistence access for dashboard accounts.
type AdminProfileRepository interface {
	Create(ctx context.Context, profile *domain.AdminProfile) error
	Update(ctx context.Context, profile *domain.AdminProfile) error
	GetByID(ctx context.Context, id string) (*domain.AdminProfile, error)
	GetByEmail(ctx context.Context, email string) (*domain.AdminProfile, error)
	List(ctx context.Context, limit, offset int) ([]domain.AdminProfile, error)
}

type adminProfileRepository struct {
	pool *pgxpool.Pool
}

// NewAdminProfileRepository returns a Postgres-backed implementation.
func NewAdminProfileRepository(pool *pgxpool.Pool) AdminProfileRepository {
	return &adminProfileRepository{pool: pool}
}

const adminProfileColumns = `id, user_id, email, name, role, is_active, created_at, updated_at`

func (r *adminProfileRepository) Create(ctx context.Context, profile *domain.AdminProfile) error {
	const query = `
        INSERT INTO admin_profiles (user_id, email, name, role, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		profile.UserID,
		profile.Email,
		profile.Name,
		profile.Role,
		profile.IsActive,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	return uniqueViolation(err)
}

func (r *adminProfileRepository) Update(ctx context.Context, profile *domain.AdminProfile) error {
	const query = `
        UPDATE admin_profiles SET email=$1, name=$2, role=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		profile.Email,
		profile.Name,
		profile.Role,
		profile.IsActive,
		profile.ID,
	).Scan(&profile.UpdatedAt)
}

func (r *adminProfileRepository) GetByID(ctx context.Context, id string) (*domain.AdminProfile, error) {
	query := `SELECT ` + adminProfileColumns + ` FROM admin_profiles WHERE id=$1`
	return scanAdminProfile(r.pool.QueryRow(ctx, query, id))
}

func (r *adminProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminProfile, error) {
	query := `SELECT ` + adminProfileColumns + ` FROM admin_profiles WHERE LOWER(email)=LOWER($1)`
	return scanAdminProfile(r.pool.QueryRow(ctx, query, email))
}

func (r *adminProfileRepository) List(ctx context.Context, limit, offset int) ([]domain.AdminProfile, error) {
	limit, offset = normalizePage(limit, offset, 50)
	query := fmt.Sprintf(`SELECT %s FROM admin_profiles ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		adminProfileColumns, limit, offset)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AdminProfile
	for rows.Next() {
		profile, err := scanAdminProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *profile)
	}
	return result, rows.Err()
}

func scanAdminProfile(row pgx.Row) (*domain.AdminProfile, error) {
	var profile domain.AdminProfile
	if err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Email,
		&profile.Name,
		&profile.Role,
		&profile.IsActive,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}
