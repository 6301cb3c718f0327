package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/pkg/errors"
)

type RoastRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRoastRepository(postgres *PostgresService, logger *zap.Logger) *RoastRepository {
	return &RoastRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

const roastColumns = `id, user_id, url, score, roast_text, ux_audit, seo_audit, copy_audit,
	conversion_tips, performance_audit, is_public, paid, created_at`

// CreateRoast inserts the record and fills CreatedAt from the database.
func (r *RoastRepository) CreateRoast(ctx context.Context, record *domain.RoastRecord) error {
	roastJSON, err := json.Marshal(record.Roast)
	if err != nil {
		return errors.NewStoreError("failed to encode roast", "create_roast", err)
	}

	audits := []*domain.AuditResult{
		record.UXAudit, record.SEOAudit, record.CopyAudit, record.ConversionTips, record.PerformanceAudit,
	}
	encoded := make([]any, len(audits))
	for i, a := range audits {
		if encoded[i], err = encodeAudit(a); err != nil {
			return errors.NewStoreError("failed to encode audit", "create_roast", err)
		}
	}

	query := `
		INSERT INTO roasts (id, user_id, url, score, roast_text, ux_audit, seo_audit, copy_audit,
		                    conversion_tips, performance_audit, is_public, paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err = r.db.QueryRowContext(ctx, query,
		record.ID, record.UserID, record.URL, record.Score, string(roastJSON),
		encoded[0], encoded[1], encoded[2], encoded[3], encoded[4],
		record.IsPublic, record.Paid,
	).Scan(&record.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert roast", zap.String("id", record.ID.String()), zap.Error(err))
		return errors.NewStoreError("failed to save roast result", "create_roast", err)
	}
	return nil
}

// GetRoast returns nil without error when the roast does not exist.
func (r *RoastRepository) GetRoast(ctx context.Context, id uuid.UUID) (*domain.RoastRecord, error) {
	query := `SELECT ` + roastColumns + ` FROM roasts WHERE id = $1`

	record, err := scanRoast(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError("failed to load roast", "get_roast", err)
	}
	return record, nil
}

func (r *RoastRepository) ListRoastsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.RoastRecord, error) {
	query := `SELECT ` + roastColumns + ` FROM roasts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, errors.NewStoreError("failed to list roasts", "list_roasts_by_user", err)
	}
	defer rows.Close()

	records := make([]*domain.RoastRecord, 0)
	for rows.Next() {
		record, err := scanRoast(rows)
		if err != nil {
			return nil, errors.NewStoreError("failed to scan roast", "list_roasts_by_user", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to list roasts", "list_roasts_by_user", err)
	}
	return records, nil
}

func (r *RoastRepository) ListPublicRoasts(ctx context.Context, limit int) ([]domain.WallEntry, error) {
	query := `
		SELECT id, url, score, roast_text->>'headline', created_at
		FROM roasts
		WHERE is_public
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.NewStoreError("failed to list public roasts", "list_public_roasts", err)
	}
	defer rows.Close()

	entries := make([]domain.WallEntry, 0, limit)
	for rows.Next() {
		var (
			entry    domain.WallEntry
			headline sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.URL, &entry.Score, &headline, &entry.CreatedAt); err != nil {
			return nil, errors.NewStoreError("failed to scan public roast", "list_public_roasts", err)
		}
		entry.Headline = headline.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to list public roasts", "list_public_roasts", err)
	}
	return entries, nil
}

// MarkPaid flips paid once. It reports false when the roast is missing or was
// already paid.
func (r *RoastRepository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE roasts SET paid = TRUE WHERE id = $1 AND paid = FALSE`, id)
	if err != nil {
		return false, errors.NewStoreError("failed to mark roast paid", "mark_paid", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStoreError("failed to mark roast paid", "mark_paid", err)
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoast(row rowScanner) (*domain.RoastRecord, error) {
	var (
		record    domain.RoastRecord
		roastJSON []byte
		auditJSON [5][]byte
	)

	err := row.Scan(
		&record.ID, &record.UserID, &record.URL, &record.Score, &roastJSON,
		&auditJSON[0], &auditJSON[1], &auditJSON[2], &auditJSON[3], &auditJSON[4],
		&record.IsPublic, &record.Paid, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(roastJSON, &record.Roast); err != nil {
		return nil, fmt.Errorf("decode roast_text: %w", err)
	}

	targets := []struct {
		dest     **domain.AuditResult
		category domain.Category
	}{
		{&record.UXAudit, domain.CategoryUX},
		{&record.SEOAudit, domain.CategorySEO},
		{&record.CopyAudit, domain.CategoryCopy},
		{&record.ConversionTips, domain.CategoryCRO},
		{&record.PerformanceAudit, domain.CategoryCompliance},
	}
	for i, target := range targets {
		audit, err := decodeAudit(auditJSON[i], target.category)
		if err != nil {
			return nil, err
		}
		*target.dest = audit
	}

	return &record, nil
}

// encodeAudit returns a string because lib/pq sends []byte parameters as bytea,
// which JSONB columns reject.
func encodeAudit(a *domain.AuditResult) (any, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeAudit(data []byte, category domain.Category) (*domain.AuditResult, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var audit domain.AuditResult
	if err := json.Unmarshal(data, &audit); err != nil {
		return nil, fmt.Errorf("decode %s audit: %w", category, err)
	}
	audit.Category = category
	return &audit, nil
}
