package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoastRecord is one persisted roast row.
type RoastRecord struct {
	ID               uuid.UUID     `json:"id"`
	UserID           uuid.NullUUID `json:"user_id"`
	URL              string        `json:"url"`
	Score            int           `json:"score"`
	Roast            RoastResult   `json:"roast_text"`
	UXAudit          *AuditResult  `json:"ux_audit"`
	SEOAudit         *AuditResult  `json:"seo_audit"`
	CopyAudit        *AuditResult  `json:"copy_audit"`
	ConversionTips   *AuditResult  `json:"conversion_tips"`
	PerformanceAudit *AuditResult  `json:"performance_audit"`
	IsPublic         bool          `json:"is_public"`
	Paid             bool          `json:"paid"`
	CreatedAt        time.Time     `json:"created_at"`
}

// NewRoastRecord builds an unsaved record from a finished bundle.
func NewRoastRecord(url string, userID uuid.NullUUID, bundle *RoastBundle, fallbackScore int, public bool) *RoastRecord {
	record := &RoastRecord{
		ID:       uuid.New(),
		UserID:   userID,
		URL:      url,
		Score:    bundle.FinalScore(fallbackScore),
		IsPublic: public,
	}
	if bundle == nil {
		return record
	}
	record.Roast = bundle.Roast
	record.UXAudit = bundle.Audit(CategoryUX)
	record.SEOAudit = bundle.Audit(CategorySEO)
	record.CopyAudit = bundle.Audit(CategoryCopy)
	record.ConversionTips = bundle.Audit(CategoryCRO)
	record.PerformanceAudit = bundle.Audit(CategoryCompliance)
	return record
}

// OwnedBy reports whether viewerID is the signed-in owner of the roast.
func (r *RoastRecord) OwnedBy(viewerID string) bool {
	return viewerID != "" && r.UserID.Valid && r.UserID.UUID.String() == viewerID
}

// CanView reports whether viewerID may see the roast at all.
func (r *RoastRecord) CanView(viewerID string) bool {
	return r.IsPublic || r.OwnedBy(viewerID)
}

// RoastView is the record as returned to one viewer.
type RoastView struct {
	RoastRecord
	IsLocked  bool   `json:"isLocked"`
	RoastHTML string `json:"roastHtml,omitempty"`
}

// ViewFor shapes the record for viewerID. Audits stay visible to the owner and
// on paid roasts; everyone else gets them nulled and IsLocked set. The caller
// must check CanView first.
func (r *RoastRecord) ViewFor(viewerID string) RoastView {
	view := RoastView{RoastRecord: *r}
	if r.OwnedBy(viewerID) || r.Paid {
		return view
	}
	view.IsLocked = true
	view.UXAudit = nil
	view.SEOAudit = nil
	view.CopyAudit = nil
	view.ConversionTips = nil
	view.PerformanceAudit = nil
	return view
}

// WallEntry is the public summary shown on the roast wall.
type WallEntry struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Score     int       `json:"score"`
	Headline  string    `json:"headline"`
	CreatedAt time.Time `json:"created_at"`
}
