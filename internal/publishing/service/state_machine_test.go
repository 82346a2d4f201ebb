package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

// MockTaskProgressRepository is a mock implementation of TaskProgressRepository
type MockTaskProgressRepository struct {
	mock.Mock
}

func (m *MockTaskProgressRepository) GetTaskProgressByIDInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.TaskProgress, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TaskProgress), args.Error(1)
}

func (m *MockTaskProgressRepository) GetTaskProgressByBookIDInTx(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) ([]model.TaskProgress, error) {
	args := m.Called(ctx, tx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TaskProgress), args.Error(1)
}

func (m *MockTaskProgressRepository) CreateTaskProgressInTx(ctx context.Context, tx *gorm.DB, rows []model.TaskProgress) ([]model.TaskProgress, error) {
	args := m.Called(ctx, tx, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TaskProgress), args.Error(1)
}

func (m *MockTaskProgressRepository) UpdateTaskProgressInTx(ctx context.Context, tx *gorm.DB, row *model.TaskProgress, expectedStatus model.TaskStatus, expectedVersion int64) (bool, error) {
	args := m.Called(ctx, tx, row, expectedStatus, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskProgressRepository) DeleteTaskProgressByBookIDInTx(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) error {
	args := m.Called(ctx, tx, bookID)
	return args.Error(0)
}

func TestManuscriptStateMachine_CanTransition(t *testing.T) {
	sm := NewManuscriptStateMachine()

	tests := []struct {
		from, to model.ManuscriptStatus
		allowed  bool
	}{
		{model.ManuscriptStatusDraft, model.ManuscriptStatusReview, true},
		{model.ManuscriptStatusReview, model.ManuscriptStatusApproved, true},
		{model.ManuscriptStatusReview, model.ManuscriptStatusCancelled, true},
		{model.ManuscriptStatusDraft, model.ManuscriptStatusApproved, false},
		{model.ManuscriptStatusDraft, model.ManuscriptStatusCancelled, false},
		{model.ManuscriptStatusApproved, model.ManuscriptStatusApproved, false},
		{model.ManuscriptStatusApproved, model.ManuscriptStatusReview, false},
		{model.ManuscriptStatusCancelled, model.ManuscriptStatusReview, false},
		{model.ManuscriptStatusReview, model.ManuscriptStatusReview, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, sm.CanTransition(tt.from, tt.to))
		})
	}
}

func pendingRow() *model.TaskProgress {
	row := &model.TaskProgress{
		BookID:       uuid.New(),
		MasterTaskID: uuid.New(),
		TaskName:     "Editing",
		Order:        1,
		Phase:        model.StagePhaseEditing,
		Status:       model.TaskStatusPending,
		Version:      1,
	}
	row.ID = uuid.New()
	return row
}

func TestTaskProgressStateMachine_Advance(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	t.Run("pending to in_progress stamps the start date", func(t *testing.T) {
		repo := new(MockTaskProgressRepository)
		sm := NewTaskProgressStateMachine(repo)
		row := pendingRow()

		repo.On("UpdateTaskProgressInTx", ctx, mock.Anything, mock.MatchedBy(func(r *model.TaskProgress) bool {
			return r.Status == model.TaskStatusInProgress && r.Percentage == 40 && r.Version == 2
		}), model.TaskStatusPending, int64(1)).Return(true, nil)

		err := sm.Advance(ctx, nil, row, model.TaskStatusInProgress, intPtr(40), now)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusInProgress, row.Status)
		assert.Equal(t, 40, row.Percentage)
		require.NotNil(t, row.StartedAt)
		assert.Equal(t, now, *row.StartedAt)
		assert.Nil(t, row.CompletedAt)
		assert.Equal(t, int64(2), row.Version)
		repo.AssertExpectations(t)
	})

	t.Run("in_progress update keeps the original start date", func(t *testing.T) {
		repo := new(MockTaskProgressRepository)
		sm := NewTaskProgressStateMachine(repo)
		row := pendingRow()
		started := now.AddDate(0, 0, -2)
		row.Status = model.TaskStatusInProgress
		row.StartedAt = &started
		row.Percentage = 20

		repo.On("UpdateTaskProgressInTx", ctx, mock.Anything, mock.Anything, model.TaskStatusInProgress, int64(1)).Return(true, nil)

		require.NoError(t, sm.Advance(ctx, nil, row, model.TaskStatusInProgress, intPtr(60), now))
		assert.Equal(t, started, *row.StartedAt)
		assert.Equal(t, 60, row.Percentage)
	})

	t.Run("completion forces 100 percent", func(t *testing.T) {
		repo := new(MockTaskProgressRepository)
		sm := NewTaskProgressStateMachine(repo)
		row := pendingRow()
		started := now.AddDate(0, 0, -3)
		row.Status = model.TaskStatusInProgress
		row.StartedAt = &started
		row.Percentage = 70

		repo.On("UpdateTaskProgressInTx", ctx, mock.Anything, mock.Anything, model.TaskStatusInProgress, int64(1)).Return(true, nil)

		require.NoError(t, sm.Advance(ctx, nil, row, model.TaskStatusCompleted, nil, now))
		assert.Equal(t, model.TaskStatusCompleted, row.Status)
		assert.Equal(t, 100, row.Percentage)
		require.NotNil(t, row.CompletedAt)
		assert.False(t, row.CompletedAt.Before(*row.StartedAt))
	})

	t.Run("rejected transitions never reach the repository", func(t *testing.T) {
		tests := []struct {
			name string
			from model.TaskStatus
			to   model.TaskStatus
		}{
			{"pending straight to completed", model.TaskStatusPending, model.TaskStatusCompleted},
			{"back to pending", model.TaskStatusInProgress, model.TaskStatusPending},
			{"overdue is never set", model.TaskStatusPending, model.TaskStatusOverdue},
			{"completed is final", model.TaskStatusCompleted, model.TaskStatusInProgress},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := new(MockTaskProgressRepository)
				sm := NewTaskProgressStateMachine(repo)
				row := pendingRow()
				row.Status = tt.from

				err := sm.Advance(ctx, nil, row, tt.to, nil, now)
				assert.ErrorIs(t, err, model.ErrInvalidTransition)
				assert.Equal(t, tt.from, row.Status)
				repo.AssertNotCalled(t, "UpdateTaskProgressInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("percentage rules", func(t *testing.T) {
		repo := new(MockTaskProgressRepository)
		sm := NewTaskProgressStateMachine(repo)

		err := sm.Advance(ctx, nil, pendingRow(), model.TaskStatusInProgress, intPtr(100), now)
		assert.ErrorIs(t, err, model.ErrValidation)

		row := pendingRow()
		row.Status = model.TaskStatusInProgress
		err = sm.Advance(ctx, nil, row, model.TaskStatusCompleted, intPtr(90), now)
		assert.ErrorIs(t, err, model.ErrValidation)
		repo.AssertNotCalled(t, "UpdateTaskProgressInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lost update after a status change is an invalid transition", func(t *testing.T) {
		repo := new(MockTaskProgressRepository)
		sm := NewTaskProgressStateMachine(repo)
		row := pendingRow()
		row.Status = model.TaskStatusInProgress

		current := *row
		current.Status = model.TaskStatusCompleted
		current.Version = 2
		repo.On("UpdateTaskProgressInTx", ctx, mock.Anything, mock.Anything, model.TaskStatusInProgress, int64(1)).Return(false, nil)
		repo.On("GetTaskProgressByIDInTx", ctx, mock.Anything, row.ID).Return(&current, nil)

		err := sm.Advance(ctx, nil, row, model.TaskStatusCompleted, nil, now)
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
		assert.Equal(t, model.TaskStatusInProgress, row.Status)
	})

	t.Run("lost update with the same status is a concurrent modification", func(t *testing.T) {
		repo := new(MockTaskProgressRepository)
		sm := NewTaskProgressStateMachine(repo)
		row := pendingRow()

		current := *row
		current.Version = 2
		repo.On("UpdateTaskProgressInTx", ctx, mock.Anything, mock.Anything, model.TaskStatusPending, int64(1)).Return(false, nil)
		repo.On("GetTaskProgressByIDInTx", ctx, mock.Anything, row.ID).Return(&current, nil)

		err := sm.Advance(ctx, nil, row, model.TaskStatusInProgress, nil, now)
		assert.ErrorIs(t, err, model.ErrConcurrentModification)
	})

	t.Run("repository errors are returned", func(t *testing.T) {
		repo := new(MockTaskProgressRepository)
		sm := NewTaskProgressStateMachine(repo)
		dbErr := errors.New("database is locked")
		repo.On("UpdateTaskProgressInTx", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, dbErr)

		err := sm.Advance(ctx, nil, pendingRow(), model.TaskStatusInProgress, nil, now)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("nil row", func(t *testing.T) {
		sm := NewTaskProgressStateMachine(new(MockTaskProgressRepository))
		assert.Error(t, sm.Advance(ctx, nil, nil, model.TaskStatusInProgress, nil, now))
	})
}

func TestTaskProgressStateMachine_Assign(t *testing.T) {
	ctx := context.Background()

	t.Run("updates an unfinished row", func(t *testing.T) {
		repo := new(MockTaskProgressRepository)
		sm := NewTaskProgressStateMachine(repo)
		row := pendingRow()
		pic := uuid.New()

		repo.On("UpdateTaskProgressInTx", ctx, mock.Anything, mock.Anything, model.TaskStatusPending, int64(1)).Return(true, nil)

		err := sm.Assign(ctx, nil, row, func(next *model.TaskProgress) { next.PICID = &pic })
		require.NoError(t, err)
		require.NotNil(t, row.PICID)
		assert.Equal(t, pic, *row.PICID)
		assert.Equal(t, model.TaskStatusPending, row.Status)
		assert.Equal(t, int64(2), row.Version)
	})

	t.Run("completed rows are frozen", func(t *testing.T) {
		repo := new(MockTaskProgressRepository)
		sm := NewTaskProgressStateMachine(repo)
		row := pendingRow()
		row.Status = model.TaskStatusCompleted

		err := sm.Assign(ctx, nil, row, func(next *model.TaskProgress) { next.Note = "late" })
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
		repo.AssertNotCalled(t, "UpdateTaskProgressInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeriveBookStatus(t *testing.T) {
	printDate := date("2026-05-01")
	stage := func(order int, phase model.StagePhase, status model.TaskStatus) model.TaskProgress {
		row := model.TaskProgress{Order: order, Phase: phase, Status: status}
		row.ID = uuid.New()
		return row
	}
	review, editing := model.StagePhaseReview, model.StagePhaseEditing
	pending, active, done := model.TaskStatusPending, model.TaskStatusInProgress, model.TaskStatusCompleted

	tests := []struct {
		name  string
		book  model.Book
		tasks []model.TaskProgress
		want  model.BookStatus
	}{
		{
			name: "no stages stays draft",
			book: model.Book{Status: model.BookStatusDraft},
			want: model.BookStatusDraft,
		},
		{
			name:  "nothing started is draft",
			book:  model.Book{Status: model.BookStatusDraft},
			tasks: []model.TaskProgress{stage(1, review, pending), stage(2, editing, pending)},
			want:  model.BookStatusDraft,
		},
		{
			name:  "active review stage",
			book:  model.Book{Status: model.BookStatusDraft},
			tasks: []model.TaskProgress{stage(1, review, active), stage(2, editing, pending)},
			want:  model.BookStatusReview,
		},
		{
			name:  "first unfinished stage is editing",
			book:  model.Book{Status: model.BookStatusReview},
			tasks: []model.TaskProgress{stage(1, review, done), stage(2, editing, pending)},
			want:  model.BookStatusEditing,
		},
		{
			name:  "all done without a print date",
			book:  model.Book{Status: model.BookStatusEditing},
			tasks: []model.TaskProgress{stage(1, review, done), stage(2, editing, done)},
			want:  model.BookStatusEditing,
		},
		{
			name:  "print stage done and print date recorded",
			book:  model.Book{Status: model.BookStatusEditing, ActualPrintDate: &printDate},
			tasks: []model.TaskProgress{stage(2, editing, done), stage(1, review, done)},
			want:  model.BookStatusPublished,
		},
		{
			name:  "print date alone does not publish",
			book:  model.Book{Status: model.BookStatusEditing, ActualPrintDate: &printDate},
			tasks: []model.TaskProgress{stage(1, review, done), stage(2, editing, active)},
			want:  model.BookStatusEditing,
		},
		{
			name:  "cancelled is sticky",
			book:  model.Book{Status: model.BookStatusCancelled},
			tasks: []model.TaskProgress{stage(1, review, done), stage(2, editing, done)},
			want:  model.BookStatusCancelled,
		},
		{
			name:  "legacy overdue rows read back from their timestamps",
			book:  model.Book{Status: model.BookStatusDraft},
			tasks: []model.TaskProgress{stage(1, review, model.TaskStatusOverdue), stage(2, editing, pending)},
			want:  model.BookStatusDraft,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveBookStatus(&tt.book, tt.tasks))
		})
	}
}
