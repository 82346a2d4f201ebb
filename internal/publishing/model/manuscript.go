package model

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Supplementary metadata keys written by lifecycle transitions (info_tambahan).
const (
	MetaSubmittedAt     = "submitted_at"
	MetaApprovedBy      = "approved_by"
	MetaApprovedAt      = "approved_at"
	MetaApprovalNote    = "approval_note"
	MetaRejectedBy      = "rejected_by"
	MetaRejectedAt      = "rejected_at"
	MetaRejectionReason = "rejection_reason"
	MetaArchivedAt      = "archived_at"
	MetaArchiveNote     = "archive_note"
)

// TargetPublisher is one entry of a manuscript's ranked publisher preferences.
type TargetPublisher struct {
	PublisherID uuid.UUID `json:"penerbit_id"`
	Priority    int       `json:"prioritas"` // 1 is the most preferred
}

// Manuscript is a submitted written work awaiting an editorial decision.
type Manuscript struct {
	BaseModel
	Title            string            `gorm:"type:varchar(255);column:judul;not null" json:"judul"`
	Genre            string            `gorm:"type:varchar(100);column:genre" json:"genre"`
	Synopsis         string            `gorm:"type:text;column:sinopsis" json:"sinopsis"`
	AuthorID         uuid.UUID         `gorm:"type:char(36);column:penulis_id;not null;index" json:"penulis_id"`
	TargetPublishers []TargetPublisher `gorm:"type:text;column:target_penerbit;serializer:json" json:"target_penerbit"`
	Status           ManuscriptStatus  `gorm:"type:varchar(20);column:status;not null;index" json:"status"`
	Metadata         map[string]string `gorm:"type:text;column:info_tambahan;serializer:json" json:"info_tambahan"`
	Version          int64             `gorm:"column:versi;not null;default:1" json:"versi"`
}

func (m *Manuscript) TableName() string {
	return "naskah"
}

// NormaliseTargetPublishers validates ranks (positive, unique, no duplicate publisher)
// and returns the preferences sorted by rank.
func NormaliseTargetPublishers(targets []TargetPublisher) ([]TargetPublisher, error) {
	out := make([]TargetPublisher, len(targets))
	copy(out, targets)

	ranks := make(map[int]bool, len(out))
	publishers := make(map[uuid.UUID]bool, len(out))
	for _, t := range out {
		if t.PublisherID == uuid.Nil {
			return nil, NewValidationError("target_penerbit", "contains an entry without penerbit_id")
		}
		if t.Priority <= 0 {
			return nil, NewValidationError("target_penerbit", "priorities must be positive")
		}
		if ranks[t.Priority] {
			return nil, NewValidationError("target_penerbit", "priorities must be unique")
		}
		if publishers[t.PublisherID] {
			return nil, NewValidationError("target_penerbit", "lists the same publisher twice")
		}
		ranks[t.Priority] = true
		publishers[t.PublisherID] = true
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

// CreateManuscriptDTO is the payload for registering a new draft manuscript.
type CreateManuscriptDTO struct {
	Title            string            `json:"judul"`
	Genre            string            `json:"genre"`
	Synopsis         string            `json:"sinopsis"`
	TargetPublishers []TargetPublisher `json:"target_penerbit"`
	Metadata         map[string]string `json:"info_tambahan"`
}

func (d *CreateManuscriptDTO) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return NewValidationError("judul", "is required")
	}
	return nil
}

// UpdateManuscriptDTO carries the author-editable fields of a draft manuscript.
type UpdateManuscriptDTO struct {
	Title            *string           `json:"judul,omitempty"`
	Genre            *string           `json:"genre,omitempty"`
	Synopsis         *string           `json:"sinopsis,omitempty"`
	TargetPublishers []TargetPublisher `json:"target_penerbit,omitempty"`
	Metadata         map[string]string `json:"info_tambahan,omitempty"`
}

// ManuscriptFilter is used when listing manuscripts.
type ManuscriptFilter struct {
	Status   *ManuscriptStatus `json:"status,omitempty"`
	AuthorID *uuid.UUID        `json:"penulis_id,omitempty"`
	Offset   *int              `json:"offset,omitempty"`
	Limit    *int              `json:"limit,omitempty"`
}

// ManuscriptListResult represents the result of querying manuscripts with pagination
type ManuscriptListResult struct {
	TotalCount  int64        `json:"total_count"`
	Manuscripts []Manuscript `json:"items"`
	Offset      int          `json:"offset"`
	Limit       int          `json:"limit"`
}

// ApprovalResult is returned by a successful approval.
type ApprovalResult struct {
	Manuscript Manuscript     `json:"naskah"`
	Book       Book           `json:"buku"`
	Tasks      []TaskProgress `json:"tugas"`
}

// ArchiveManuscriptDTO carries the archival note.
type ArchiveManuscriptDTO struct {
	Note string `json:"catatan"`
}

// IsReservedMetadataKey reports whether key is written only by lifecycle transitions.
func IsReservedMetadataKey(key string) bool {
	switch key {
	case MetaSubmittedAt, MetaApprovedBy, MetaApprovedAt, MetaApprovalNote,
		MetaRejectedBy, MetaRejectedAt, MetaRejectionReason, MetaArchivedAt, MetaArchiveNote:
		return true
	}
	return false
}
