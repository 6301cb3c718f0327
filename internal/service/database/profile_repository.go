package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/pkg/errors"
)

type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewProfileRepository(postgres *PostgresService, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// GetProfile returns nil without error when no profile exists.
func (r *ProfileRepository) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `SELECT id, email, plan, credits, created_at FROM profiles WHERE id = $1`

	var (
		profile domain.Profile
		email   sql.NullString
		plan    string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&profile.ID, &email, &plan, &profile.Credits, &profile.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError("failed to load profile", "get_profile", err)
	}
	profile.Email = email.String
	profile.Plan = domain.Plan(plan)
	return &profile, nil
}

// CreateProfile inserts a free profile with the given starting credits.
func (r *ProfileRepository) CreateProfile(ctx context.Context, id uuid.UUID, email string, credits int) error {
	query := `
		INSERT INTO profiles (id, email, plan, credits)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, id, email, string(domain.PlanFree), credits); err != nil {
		return errors.NewStoreError("failed to create profile", "create_profile", err)
	}
	return nil
}

// DecrementCredits charges one roast. Only free profiles with credits left are
// touched.
func (r *ProfileRepository) DecrementCredits(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE profiles SET credits = credits - 1
		WHERE id = $1 AND plan = $2 AND credits > 0
	`
	if _, err := r.db.ExecContext(ctx, query, id, string(domain.PlanFree)); err != nil {
		return errors.NewStoreError("failed to decrement credits", "decrement_credits", err)
	}
	return nil
}

// UpgradeByEmail moves a profile to the agency plan with unlimited credits.
func (r *ProfileRepository) UpgradeByEmail(ctx context.Context, email string) (bool, error) {
	query := `UPDATE profiles SET plan = $1, credits = $2 WHERE email = $3`

	result, err := r.db.ExecContext(ctx, query, string(domain.PlanAgency), domain.UnlimitedCredits, email)
	if err != nil {
		return false, errors.NewStoreError("failed to upgrade profile", "upgrade_by_email", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStoreError("failed to upgrade profile", "upgrade_by_email", err)
	}
	r.logger.Info("Profile plan updated",
		zap.String("email", email),
		zap.String("plan", string(domain.PlanAgency)),
		zap.Int64("rows", affected))
	return affected > 0, nil
}
