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

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
	"github.com/Asyfdzaky/bps-dashboard-sub001/utils"
)

// PipelineService tracks books through their production stages.
type PipelineService struct {
	db       *gorm.DB
	tasks    TaskProgressRepository
	sm       *TaskProgressStateMachine
	calendar Calendar
}

func NewPipelineService(db *gorm.DB, tasks TaskProgressRepository, calendar Calendar) *PipelineService {
	return &PipelineService{
		db:       db,
		tasks:    tasks,
		sm:       NewTaskProgressStateMachine(tasks),
		calendar: calendar,
	}
}

// GetPipeline returns a book and its stages in snapshot order, with read-time statuses.
func (s *PipelineService) GetPipeline(ctx context.Context, bookID uuid.UUID) (*model.PipelineView, error) {
	var view *model.PipelineView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := getBookInTx(ctx, tx, bookID)
		if err != nil {
			return err
		}
		rows, err := s.tasks.GetTaskProgressByBookIDInTx(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if err := fillTitlesInTx(ctx, tx, []*model.Book{book}); err != nil {
			return err
		}
		view = s.pipelineView(book, rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Advance moves one stage forward and re-derives the book status.
func (s *PipelineService) Advance(ctx context.Context, cmd model.AdvanceCommand) (*model.PipelineView, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	to := cmd.TargetStatus()

	var view *model.PipelineView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.tasks.GetTaskProgressByIDInTx(ctx, tx, cmd.TaskProgressID)
		if err != nil {
			return err
		}
		book, err := lockBookInTx(ctx, tx, row.BookID)
		if err != nil {
			return err
		}
		if book.Status.IsTerminal() {
			return model.NewInvalidTransitionError("progres_tugas", row.ID.String(), row.StoredStatus(), to)
		}

		if err := s.sm.Advance(ctx, tx, row, to, cmd.Percentage, s.calendar.Now().UTC()); err != nil {
			return err
		}

		view, err = s.rederiveInTx(ctx, tx, book)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("task advanced", "progres_tugas_id", cmd.TaskProgressID, "status", to, "buku_id", view.ID)
	return view, nil
}

// AssignTask sets PIC, deadline or note of an unfinished stage.
func (s *PipelineService) AssignTask(ctx context.Context, taskID uuid.UUID, req *model.AssignTaskDTO) (*model.TaskProgressView, error) {
	if req == nil {
		return nil, fmt.Errorf("assign request cannot be nil")
	}
	// an empty deadline string clears the deadline
	var deadline *time.Time
	if req.Deadline != nil && *req.Deadline != "" {
		d, err := model.ParseDate("deadline", *req.Deadline)
		if err != nil {
			return nil, err
		}
		deadline = &d
	}

	var result *model.TaskProgressView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.tasks.GetTaskProgressByIDInTx(ctx, tx, taskID)
		if err != nil {
			return err
		}
		book, err := lockBookInTx(ctx, tx, row.BookID)
		if err != nil {
			return err
		}
		if book.Status.IsTerminal() {
			return model.NewInvalidTransitionError("progres_tugas", row.ID.String(), row.StoredStatus(), row.StoredStatus())
		}
		if req.PICID != nil {
			if err := ensureUserExistsInTx(ctx, tx, *req.PICID); err != nil {
				return err
			}
		}

		err = s.sm.Assign(ctx, tx, row, func(next *model.TaskProgress) {
			if req.PICID != nil {
				pic := *req.PICID
				next.PICID = &pic
			}
			if req.Deadline != nil {
				next.Deadline = deadline
			}
			if req.Note != nil {
				next.Note = strings.TrimSpace(*req.Note)
			}
		})
		if err != nil {
			return err
		}
		result = &model.TaskProgressView{TaskProgress: *row, EffectiveStatus: row.EffectiveStatus(s.calendar.Today())}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordPrintDate stores the actual print date, which must fall between the approval
// date and today. A book whose print stage is completed becomes published.
func (s *PipelineService) RecordPrintDate(ctx context.Context, bookID uuid.UUID, req *model.RecordPrintDateDTO) (*model.PipelineView, error) {
	if req == nil {
		return nil, fmt.Errorf("print date request cannot be nil")
	}
	date, err := model.ParseDate("tanggal_realisasi_cetak", req.Date)
	if err != nil {
		return nil, err
	}

	var view *model.PipelineView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := lockBookInTx(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if book.Status == model.BookStatusCancelled {
			return model.NewInvalidTransitionError("buku", book.ID.String(), book.Status, model.BookStatusPublished)
		}
		if date.Before(model.CivilDateIn(book.ApprovedAt, s.calendar.Location)) {
			return model.NewValidationError("tanggal_realisasi_cetak", "must not be before the approval date")
		}
		if date.After(s.calendar.Today()) {
			return model.NewValidationError("tanggal_realisasi_cetak", "must not be in the future")
		}

		next := *book
		next.ActualPrintDate = &date
		view, err = s.rederiveInTx(ctx, tx, &next, "tanggal_realisasi_cetak")
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("print date recorded", "buku_id", bookID, "status", view.Status)
	return view, nil
}

// CancelBook stops production of a book. Cancellation is terminal.
func (s *PipelineService) CancelBook(ctx context.Context, bookID uuid.UUID) (*model.BookView, error) {
	var view model.BookView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := lockBookInTx(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if book.Status.IsTerminal() {
			return model.NewInvalidTransitionError("buku", book.ID.String(), book.Status, model.BookStatusCancelled)
		}
		next := *book
		next.Status = model.BookStatusCancelled
		next.Version = book.Version + 1
		if err := saveBookInTx(ctx, tx, &next, book, "status_keseluruhan"); err != nil {
			return err
		}
		if err := fillTitlesInTx(ctx, tx, []*model.Book{&next}); err != nil {
			return err
		}
		view = NewBookView(next, s.calendar.Today())
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("book cancelled", "buku_id", bookID)
	return &view, nil
}

// DeleteBook removes a book and all of its stages.
func (s *PipelineService) DeleteBook(ctx context.Context, bookID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockBookInTx(ctx, tx, bookID); err != nil {
			return err
		}
		if err := s.tasks.DeleteTaskProgressByBookIDInTx(ctx, tx, bookID); err != nil {
			return err
		}
		if err := tx.Delete(&model.Book{}, "id = ?", bookID).Error; err != nil {
			return fmt.Errorf("failed to delete book: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("book deleted", "buku_id", bookID)
	return nil
}

// ListBooks returns books matching filter, nearest target date first.
func (s *PipelineService) ListBooks(ctx context.Context, filter model.BookFilter) (*model.BookListResult, error) {
	today := s.calendar.Today()
	query := s.db.WithContext(ctx).Model(&model.Book{})
	if filter.Status != nil {
		query = query.Where("status_keseluruhan = ?", *filter.Status)
	}
	if filter.PublisherID != nil {
		query = query.Where("penerbit_id = ?", *filter.PublisherID)
	}
	if filter.PICID != nil {
		query = query.Where("pic_id = ?", *filter.PICID)
	}
	if filter.Deadline != nil {
		var err error
		query, err = whereDeadlineClass(query, *filter.Deadline, today)
		if err != nil {
			return nil, err
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)
	var books []model.Book
	if err := query.Order("tanggal_target_naik_cetak ASC").Order("id ASC").Offset(offset).Limit(limit).Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve books: %w", err)
	}

	ptrs := make([]*model.Book, len(books))
	for i := range books {
		ptrs[i] = &books[i]
	}
	if err := fillTitlesInTx(ctx, s.db, ptrs); err != nil {
		return nil, err
	}

	views := make([]model.BookView, 0, len(books))
	for _, b := range books {
		views = append(views, NewBookView(b, today))
	}
	return &model.BookListResult{TotalCount: total, Books: views, Offset: offset, Limit: limit}, nil
}

// rederiveInTx recomputes the book status from its stages and persists the book when
// the status or any of the extra columns changed.
func (s *PipelineService) rederiveInTx(ctx context.Context, tx *gorm.DB, book *model.Book, extraColumns ...string) (*model.PipelineView, error) {
	rows, err := s.tasks.GetTaskProgressByBookIDInTx(ctx, tx, book.ID)
	if err != nil {
		return nil, err
	}

	next := *book
	next.Status = DeriveBookStatus(book, rows)
	if next.Status != book.Status || len(extraColumns) > 0 {
		prev, err := lockBookInTx(ctx, tx, book.ID)
		if err != nil {
			return nil, err
		}
		next.Version = prev.Version + 1
		columns := append([]string{"status_keseluruhan"}, extraColumns...)
		if err := saveBookInTx(ctx, tx, &next, prev, columns...); err != nil {
			return nil, err
		}
	}
	if err := fillTitlesInTx(ctx, tx, []*model.Book{&next}); err != nil {
		return nil, err
	}
	return s.pipelineView(&next, rows), nil
}

func (s *PipelineService) pipelineView(book *model.Book, rows []model.TaskProgress) *model.PipelineView {
	today := s.calendar.Today()
	ordered := make([]model.TaskProgress, len(rows))
	copy(ordered, rows)
	sortTasksByOrder(ordered)

	tasks := make([]model.TaskProgressView, 0, len(ordered))
	for _, row := range ordered {
		tasks = append(tasks, model.TaskProgressView{TaskProgress: row, EffectiveStatus: row.EffectiveStatus(today)})
	}

	b := *book
	b.Status = DeriveBookStatus(book, rows)
	return &model.PipelineView{BookView: NewBookView(b, today), Tasks: tasks}
}

// saveBookInTx writes the selected columns of next if the stored version still
// equals prev's.
func saveBookInTx(ctx context.Context, tx *gorm.DB, next, prev *model.Book, columns ...string) error {
	columns = append(columns, "versi", "updated_at")
	result := tx.WithContext(ctx).
		Model(next).
		Where("versi = ?", prev.Version).
		Select(columns).
		Updates(next)
	if result.Error != nil {
		return fmt.Errorf("failed to update book %s: %w", next.ID, result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := lockBookInTx(ctx, tx, next.ID)
	if err != nil {
		return err
	}
	if current.Status != prev.Status && current.Status.IsTerminal() {
		return model.NewInvalidTransitionError("buku", next.ID.String(), current.Status, next.Status)
	}
	return model.ConcurrentModificationError("buku", next.ID)
}

func lockBookInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Book, error) {
	return getBookInTx(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func getBookInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Book, error) {
	var book model.Book
	if err := tx.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundError("buku", id)
		}
		return nil, fmt.Errorf("failed to retrieve book: %w", err)
	}
	return &book, nil
}

// fillTitlesInTx copies each book's manuscript title into its transient Title field.
func fillTitlesInTx(ctx context.Context, tx *gorm.DB, books []*model.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ManuscriptID)
	}
	var manuscripts []model.Manuscript
	if err := tx.WithContext(ctx).Select("id", "judul").Where("id IN ?", ids).Find(&manuscripts).Error; err != nil {
		return fmt.Errorf("failed to retrieve manuscript titles: %w", err)
	}
	titles := make(map[uuid.UUID]string, len(manuscripts))
	for _, m := range manuscripts {
		titles[m.ID] = m.Title
	}
	for _, b := range books {
		b.Title = titles[b.ManuscriptID]
	}
	return nil
}

// whereDeadlineClass restricts query to books whose target date falls in class.
func whereDeadlineClass(query *gorm.DB, class model.DeadlineClass, today time.Time) (*gorm.DB, error) {
	const column = "tanggal_target_naik_cetak"
	criticalEnd := today.AddDate(0, 0, criticalWindowDays+1)
	warningEnd := today.AddDate(0, 0, warningWindowDays+1)
	switch class {
	case model.DeadlineOverdue:
		return query.Where(column+" < ?", today), nil
	case model.DeadlineCritical:
		return query.Where(column+" >= ? AND "+column+" < ?", today, criticalEnd), nil
	case model.DeadlineWarning:
		return query.Where(column+" >= ? AND "+column+" < ?", criticalEnd, warningEnd), nil
	case model.DeadlineNormal:
		return query.Where(column+" >= ?", warningEnd), nil
	}
	return nil, model.NewValidationError("deadline", "must be one of normal, warning, critical, overdue")
}
