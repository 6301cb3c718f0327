package database

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/domain"
)

// openTestDB connects to ROAST_TEST_DATABASE_URL and applies the schema. The
// tests are skipped when it is unset.
func openTestDB(t *testing.T) *PostgresService {
	t.Helper()
	dsn := os.Getenv("ROAST_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ROAST_TEST_DATABASE_URL not set")
	}

	postgres, err := NewPostgresService(PostgresConfig{URL: dsn}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { postgres.Close() })

	require.NoError(t, postgres.Migrate(context.Background()))
	// second run must be a no-op
	require.NoError(t, postgres.Migrate(context.Background()))
	return postgres
}

func TestPostgresConfigDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "roast"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=roast sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")

	cfg.URL = "postgres://u:p@db/roast"
	assert.Equal(t, "postgres://u:p@db/roast", cfg.DSN())
}

func TestEncodeDecodeAudit(t *testing.T) {
	encoded, err := encodeAudit(nil)
	require.NoError(t, err)
	assert.Nil(t, encoded)

	encoded, err = encodeAudit(&domain.AuditResult{Category: domain.CategorySEO, Score: 72, Summary: "ok", Issues: []domain.Issue{}})
	require.NoError(t, err)
	require.IsType(t, "", encoded)

	decoded, err := decodeAudit([]byte(encoded.(string)), domain.CategorySEO)
	require.NoError(t, err)
	assert.Equal(t, domain.CategorySEO, decoded.Category)
	assert.Equal(t, 72, decoded.Score)

	decoded, err = decodeAudit(nil, domain.CategoryUX)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestRoastRepositoryRoundTrip(t *testing.T) {
	postgres := openTestDB(t)
	repo := NewRoastRepository(postgres, zap.NewNop())
	ctx := context.Background()

	owner := uuid.New()
	bundle := &domain.RoastBundle{
		Roast: domain.RoastResult{Score: 33, Headline: "Ouch", Roast: "Your hero is a wall of text."},
		Audits: map[domain.Category]domain.AuditResult{
			domain.CategoryUX: {Category: domain.CategoryUX, Score: 44, Summary: "cluttered", Issues: []domain.Issue{
				{Title: "Tiny buttons", Severity: domain.SeverityCritical},
			}},
		},
	}
	record := domain.NewRoastRecord("https://shop.test/", uuid.NullUUID{UUID: owner, Valid: true}, bundle, 50, true)

	require.NoError(t, repo.CreateRoast(ctx, record))
	assert.False(t, record.CreatedAt.IsZero())

	loaded, err := repo.GetRoast(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 33, loaded.Score)
	assert.Equal(t, "Ouch", loaded.Roast.Headline)
	assert.Equal(t, owner, loaded.UserID.UUID)
	require.NotNil(t, loaded.UXAudit)
	assert.Equal(t, 44, loaded.UXAudit.Score)
	assert.Len(t, loaded.UXAudit.Issues, 1)
	assert.Nil(t, loaded.SEOAudit)

	missing, err := repo.GetRoast(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	mine, err := repo.ListRoastsByUser(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, record.ID, mine[0].ID)

	wall, err := repo.ListPublicRoasts(ctx, 100)
	require.NoError(t, err)
	var found bool
	for _, entry := range wall {
		if entry.ID == record.ID {
			found = true
			assert.Equal(t, "Ouch", entry.Headline)
		}
	}
	assert.True(t, found)

	flipped, err := repo.MarkPaid(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = repo.MarkPaid(ctx, record.ID)
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestProfileRepositoryCredits(t *testing.T) {
	postgres := openTestDB(t)
	repo := NewProfileRepository(postgres, zap.NewNop())
	ctx := context.Background()

	id := uuid.New()
	email := id.String() + "@example.com"

	profile, err := repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, profile)

	require.NoError(t, repo.CreateProfile(ctx, id, email, 1))
	require.NoError(t, repo.CreateProfile(ctx, id, email, 5))

	profile, err = repo.GetProfile(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, domain.PlanFree, profile.Plan)
	assert.Equal(t, 1, profile.Credits)

	require.NoError(t, repo.DecrementCredits(ctx, id))
	require.NoError(t, repo.DecrementCredits(ctx, id))
	profile, err = repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, profile.Credits)
	assert.False(t, profile.CanRoast())

	upgraded, err := repo.UpgradeByEmail(ctx, email)
	require.NoError(t, err)
	assert.True(t, upgraded)

	profile, err = repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanAgency, profile.Plan)
	assert.True(t, profile.CanRoast())

	require.NoError(t, repo.DecrementCredits(ctx, id))
	profile, err = repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.UnlimitedCredits, profile.Credits)

	upgraded, err = repo.UpgradeByEmail(ctx, "nobody-"+id.String()+"@example.com")
	require.NoError(t, err)
	assert.False(t, upgraded)
}
