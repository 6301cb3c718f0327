package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle() *RoastBundle {
	audits := make(map[Category]AuditResult)
	for _, c := range AuditCategories() {
		audits[c] = AuditResult{Category: c, Score: 60, Issues: []Issue{}}
	}
	return &RoastBundle{
		Roast:  RoastResult{Score: 35, Headline: "Ouch"},
		Audits: audits,
	}
}

func TestNewRoastRecordMapsCategories(t *testing.T) {
	owner := uuid.NullUUID{UUID: uuid.New(), Valid: true}
	record := NewRoastRecord("https://example.com", owner, sampleBundle(), 50, true)

	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, 35, record.Score)
	require.NotNil(t, record.UXAudit)
	require.NotNil(t, record.ConversionTips)
	require.NotNil(t, record.PerformanceAudit)
	assert.Equal(t, CategoryCompliance, record.PerformanceAudit.Category)
	assert.False(t, record.Paid)
}

func TestViewForOwnerUnlocked(t *testing.T) {
	owner := uuid.New()
	record := NewRoastRecord("https://example.com", uuid.NullUUID{UUID: owner, Valid: true}, sampleBundle(), 50, false)

	assert.True(t, record.CanView(owner.String()))
	view := record.ViewFor(owner.String())
	assert.False(t, view.IsLocked)
	assert.NotNil(t, view.SEOAudit)
}

func TestViewForStrangerLockedUnlessPaid(t *testing.T) {
	record := NewRoastRecord("https://example.com", uuid.NullUUID{}, sampleBundle(), 50, true)

	assert.True(t, record.CanView(""))
	view := record.ViewFor("")
	assert.True(t, view.IsLocked)
	assert.Nil(t, view.UXAudit)
	assert.Nil(t, view.PerformanceAudit)
	assert.NotNil(t, record.UXAudit, "record itself must not be mutated")

	record.Paid = true
	view = record.ViewFor(uuid.NewString())
	assert.False(t, view.IsLocked)
	assert.NotNil(t, view.UXAudit)
}

func TestPrivateRoastHiddenFromOthers(t *testing.T) {
	owner := uuid.New()
	record := NewRoastRecord("https://example.com", uuid.NullUUID{UUID: owner, Valid: true}, sampleBundle(), 50, false)

	assert.False(t, record.CanView(""))
	assert.False(t, record.CanView(uuid.NewString()))
}

func TestProfileCanRoast(t *testing.T) {
	assert.True(t, (&Profile{Plan: PlanFree, Credits: 1}).CanRoast())
	assert.False(t, (&Profile{Plan: PlanFree, Credits: 0}).CanRoast())
	assert.True(t, (&Profile{Plan: PlanAgency, Credits: UnlimitedCredits}).CanRoast())
	var missing *Profile
	assert.False(t, missing.CanRoast())
}
