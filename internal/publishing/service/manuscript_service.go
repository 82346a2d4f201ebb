package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
	"github.com/Asyfdzaky/bps-dashboard-sub001/utils"
)

// ManuscriptService runs the editorial lifecycle and creates books on approval.
type ManuscriptService struct {
	db       *gorm.DB
	catalog  *CatalogService
	tasks    TaskProgressRepository
	sm       *ManuscriptStateMachine
	calendar Calendar
}

func NewManuscriptService(db *gorm.DB, catalog *CatalogService, tasks TaskProgressRepository, calendar Calendar) *ManuscriptService {
	return &ManuscriptService{
		db:       db,
		catalog:  catalog,
		tasks:    tasks,
		sm:       NewManuscriptStateMachine(),
		calendar: calendar,
	}
}

// Create registers a draft manuscript owned by the principal.
func (s *ManuscriptService) Create(ctx context.Context, principal *auth.Principal, req *model.CreateManuscriptDTO) (*model.Manuscript, error) {
	if req == nil {
		return nil, fmt.Errorf("create request cannot be nil")
	}
	if principal == nil {
		return nil, auth.ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	targets, err := model.NormaliseTargetPublishers(req.TargetPublishers)
	if err != nil {
		return nil, err
	}
	metadata, err := userMetadata(nil, req.Metadata)
	if err != nil {
		return nil, err
	}

	manuscript := &model.Manuscript{
		Title:            strings.TrimSpace(req.Title),
		Genre:            req.Genre,
		Synopsis:         req.Synopsis,
		AuthorID:         principal.UserID,
		TargetPublishers: targets,
		Status:           model.ManuscriptStatusDraft,
		Metadata:         metadata,
		Version:          1,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUserExistsInTx(ctx, tx, principal.UserID); err != nil {
			return err
		}
		for _, target := range targets {
			if err := ensurePublisherExistsInTx(ctx, tx, target.PublisherID); err != nil {
				return err
			}
		}
		if err := tx.Create(manuscript).Error; err != nil {
			return fmt.Errorf("failed to create manuscript: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("manuscript created", "naskah_id", manuscript.ID, "penulis_id", manuscript.AuthorID)
	return manuscript, nil
}

// Update edits a draft manuscript. Only its author, or a principal allowed to edit any
// manuscript, may do so.
func (s *ManuscriptService) Update(ctx context.Context, principal *auth.Principal, id uuid.UUID, req *model.UpdateManuscriptDTO) (*model.Manuscript, error) {
	if req == nil {
		return nil, fmt.Errorf("update request cannot be nil")
	}

	var manuscript *model.Manuscript
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.lockManuscriptInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorizeAuthor(principal, m); err != nil {
			return err
		}
		if m.Status != model.ManuscriptStatusDraft {
			return model.NewInvalidTransitionError("naskah", m.ID.String(), m.Status, m.Status)
		}

		next := *m
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return model.NewValidationError("judul", "cannot be empty")
			}
			next.Title = title
		}
		if req.Genre != nil {
			next.Genre = *req.Genre
		}
		if req.Synopsis != nil {
			next.Synopsis = *req.Synopsis
		}
		if req.TargetPublishers != nil {
			targets, err := model.NormaliseTargetPublishers(req.TargetPublishers)
			if err != nil {
				return err
			}
			for _, target := range targets {
				if err := ensurePublisherExistsInTx(ctx, tx, target.PublisherID); err != nil {
					return err
				}
			}
			next.TargetPublishers = targets
		}
		if req.Metadata != nil {
			metadata, err := userMetadata(m.Metadata, req.Metadata)
			if err != nil {
				return err
			}
			next.Metadata = metadata
		}
		next.Version = m.Version + 1

		if err := s.saveInTx(ctx, tx, &next, m.Status, m.Version,
			"judul", "genre", "sinopsis", "target_penerbit", "info_tambahan", "versi", "updated_at"); err != nil {
			return err
		}
		manuscript = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return manuscript, nil
}

// Submit moves a draft to review.
func (s *ManuscriptService) Submit(ctx context.Context, principal *auth.Principal, cmd model.SubmitCommand) (*model.Manuscript, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var manuscript *model.Manuscript
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.lockManuscriptInTx(ctx, tx, cmd.ManuscriptID)
		if err != nil {
			return err
		}
		if err := authorizeAuthor(principal, m); err != nil {
			return err
		}
		next, err := s.transition(m, model.ManuscriptStatusReview, map[string]string{
			model.MetaSubmittedAt: s.now().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		if err := s.saveTransitionInTx(ctx, tx, next, m); err != nil {
			return err
		}
		manuscript = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("manuscript submitted", "naskah_id", manuscript.ID)
	return manuscript, nil
}

// Approve accepts a manuscript under review. In one transaction it marks the manuscript
// approved, creates its Book and instantiates the full pipeline from the current catalog.
func (s *ManuscriptService) Approve(ctx context.Context, principal *auth.Principal, cmd model.ApproveCommand) (*model.ApprovalResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, auth.ErrUnauthorized
	}
	target, err := model.ParseDate("tanggal_target_naik_cetak", cmd.TargetPrintDate)
	if err != nil {
		return nil, err
	}

	var result *model.ApprovalResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.lockManuscriptInTx(ctx, tx, cmd.ManuscriptID)
		if err != nil {
			return err
		}
		if err := s.sm.ValidateTransition(m, model.ManuscriptStatusApproved); err != nil {
			return err
		}
		if target.Before(s.calendar.Today()) {
			return model.NewValidationError("tanggal_target_naik_cetak", "must not be in the past")
		}
		if err := ensurePublisherExistsInTx(ctx, tx, cmd.PublisherID); err != nil {
			return err
		}
		if err := ensureUserExistsInTx(ctx, tx, cmd.PICID); err != nil {
			return err
		}

		now := s.now()
		audit := map[string]string{
			model.MetaApprovedBy: principal.UserID.String(),
			model.MetaApprovedAt: now.Format(time.RFC3339),
		}
		if note := strings.TrimSpace(cmd.Note); note != "" {
			audit[model.MetaApprovalNote] = note
		}
		next, err := s.transition(m, model.ManuscriptStatusApproved, audit)
		if err != nil {
			return err
		}
		if err := s.saveTransitionInTx(ctx, tx, next, m); err != nil {
			return err
		}

		catalog, err := s.catalog.SnapshotInTx(ctx, tx)
		if err != nil {
			return err
		}

		book := &model.Book{
			ManuscriptID:    m.ID,
			PublisherID:     cmd.PublisherID,
			PICID:           cmd.PICID,
			ApprovedAt:      now,
			TargetPrintDate: target,
			Status:          model.BookStatusDraft,
			Version:         1,
		}
		if err := tx.Create(book).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return model.NewInvalidTransitionError("naskah", m.ID.String(), model.ManuscriptStatusApproved, model.ManuscriptStatusApproved)
			}
			return fmt.Errorf("failed to create book: %w", err)
		}
		book.Title = m.Title

		rows, err := s.tasks.CreateTaskProgressInTx(ctx, tx, instantiatePipeline(book.ID, catalog))
		if err != nil {
			return err
		}

		result = &model.ApprovalResult{Manuscript: *next, Book: *book, Tasks: rows}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("manuscript approved",
		"naskah_id", result.Manuscript.ID,
		"buku_id", result.Book.ID,
		"tasks", len(result.Tasks),
	)
	return result, nil
}

// Reject cancels a manuscript under review with a reason.
func (s *ManuscriptService) Reject(ctx context.Context, principal *auth.Principal, cmd model.RejectCommand) (*model.Manuscript, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, auth.ErrUnauthorized
	}

	var manuscript *model.Manuscript
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.lockManuscriptInTx(ctx, tx, cmd.ManuscriptID)
		if err != nil {
			return err
		}
		next, err := s.transition(m, model.ManuscriptStatusCancelled, map[string]string{
			model.MetaRejectedBy:      principal.UserID.String(),
			model.MetaRejectedAt:      s.now().Format(time.RFC3339),
			model.MetaRejectionReason: strings.TrimSpace(cmd.Reason),
		})
		if err != nil {
			return err
		}
		if err := s.saveTransitionInTx(ctx, tx, next, m); err != nil {
			return err
		}
		manuscript = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("manuscript rejected", "naskah_id", manuscript.ID)
	return manuscript, nil
}

// Archive stamps archival metadata on an approved or cancelled manuscript.
func (s *ManuscriptService) Archive(ctx context.Context, id uuid.UUID, req *model.ArchiveManuscriptDTO) (*model.Manuscript, error) {
	note := ""
	if req != nil {
		note = strings.TrimSpace(req.Note)
	}

	var manuscript *model.Manuscript
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.lockManuscriptInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !m.Status.IsTerminal() {
			return model.NewInvalidTransitionError("naskah", m.ID.String(), m.Status, m.Status)
		}

		next := *m
		next.Metadata = mergeMetadata(m.Metadata, map[string]string{
			model.MetaArchivedAt:  s.now().Format(time.RFC3339),
			model.MetaArchiveNote: note,
		})
		next.Version = m.Version + 1
		if err := s.saveInTx(ctx, tx, &next, m.Status, m.Version, "info_tambahan", "versi", "updated_at"); err != nil {
			return err
		}
		manuscript = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return manuscript, nil
}

// GetManuscript retrieves a manuscript by its ID.
func (s *ManuscriptService) GetManuscript(ctx context.Context, id uuid.UUID) (*model.Manuscript, error) {
	return s.getManuscriptInTx(ctx, s.db, id)
}

// ListManuscripts returns manuscripts matching filter, newest first.
func (s *ManuscriptService) ListManuscripts(ctx context.Context, filter model.ManuscriptFilter) (*model.ManuscriptListResult, error) {
	query := s.db.WithContext(ctx).Model(&model.Manuscript{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AuthorID != nil {
		query = query.Where("penulis_id = ?", *filter.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count manuscripts: %w", err)
	}

	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)
	var manuscripts []model.Manuscript
	if err := query.Order("created_at DESC").Order("id ASC").Offset(offset).Limit(limit).Find(&manuscripts).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve manuscripts: %w", err)
	}

	return &model.ManuscriptListResult{
		TotalCount:  total,
		Manuscripts: manuscripts,
		Offset:      offset,
		Limit:       limit,
	}, nil
}

func (s *ManuscriptService) now() time.Time {
	return s.calendar.Now().UTC()
}

// transition returns a copy of m moved to status to, with audit entries merged into
// its metadata and the version bumped. m is left unchanged.
func (s *ManuscriptService) transition(m *model.Manuscript, to model.ManuscriptStatus, audit map[string]string) (*model.Manuscript, error) {
	if err := s.sm.ValidateTransition(m, to); err != nil {
		return nil, err
	}
	next := *m
	next.Status = to
	next.Metadata = mergeMetadata(m.Metadata, audit)
	next.Version = m.Version + 1
	return &next, nil
}

func (s *ManuscriptService) saveTransitionInTx(ctx context.Context, tx *gorm.DB, next, prev *model.Manuscript) error {
	return s.saveInTx(ctx, tx, next, prev.Status, prev.Version, "status", "info_tambahan", "versi", "updated_at")
}

// saveInTx writes the selected columns of next only if the stored row still has the
// expected status and version.
func (s *ManuscriptService) saveInTx(ctx context.Context, tx *gorm.DB, next *model.Manuscript, expectedStatus model.ManuscriptStatus, expectedVersion int64, columns ...string) error {
	result := tx.WithContext(ctx).
		Model(next).
		Where("status = ? AND versi = ?", expectedStatus, expectedVersion).
		Select(columns).
		Updates(next)
	if result.Error != nil {
		return fmt.Errorf("failed to update manuscript %s: %w", next.ID, result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := s.lockManuscriptInTx(ctx, tx, next.ID)
	if err != nil {
		return err
	}
	if current.Status != expectedStatus {
		return model.NewInvalidTransitionError("naskah", next.ID.String(), current.Status, next.Status)
	}
	return model.ConcurrentModificationError("naskah", next.ID)
}

// lockManuscriptInTx reads the latest committed row and holds it until tx ends, so a
// transition never decides on a stale snapshot.
func (s *ManuscriptService) lockManuscriptInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Manuscript, error) {
	return s.getManuscriptInTx(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (s *ManuscriptService) getManuscriptInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Manuscript, error) {
	var m model.Manuscript
	if err := tx.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundError("naskah", id)
		}
		return nil, fmt.Errorf("failed to retrieve manuscript: %w", err)
	}
	return &m, nil
}

// instantiatePipeline copies every catalog stage into pending rows for a new book.
func instantiatePipeline(bookID uuid.UUID, catalog *model.StageCatalog) []model.TaskProgress {
	stages := catalog.Tasks()
	rows := make([]model.TaskProgress, 0, len(stages))
	for i, stage := range stages {
		rows = append(rows, model.TaskProgress{
			BookID:       bookID,
			MasterTaskID: stage.ID,
			TaskName:     stage.Name,
			Order:        i + 1,
			Phase:        stage.Phase,
			Status:       model.TaskStatusPending,
			Percentage:   0,
			Version:      1,
		})
	}
	return rows
}

func authorizeAuthor(principal *auth.Principal, m *model.Manuscript) error {
	if principal == nil {
		return auth.ErrUnauthorized
	}
	if principal.UserID == m.AuthorID || principal.Capabilities.Has(auth.CanEditAnyManuscript) {
		return nil
	}
	return fmt.Errorf("manuscript %s belongs to another author: %w", m.ID, auth.ErrForbidden)
}

func mergeMetadata(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// userMetadata merges author-supplied metadata, refusing keys owned by the lifecycle audit trail.
func userMetadata(base, supplied map[string]string) (map[string]string, error) {
	for k := range supplied {
		if model.IsReservedMetadataKey(k) {
			return nil, model.NewValidationError("info_tambahan", fmt.Sprintf("key %q is reserved", k))
		}
	}
	return mergeMetadata(base, supplied), nil
}

func ensureUserExistsInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if count == 0 {
		return model.NotFoundError("pengguna", id)
	}
	return nil
}

func ensurePublisherExistsInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&model.Publisher{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up publisher: %w", err)
	}
	if count == 0 {
		return model.NotFoundError("penerbit", id)
	}
	return nil
}
