package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

type manuscriptTransition struct {
	From model.ManuscriptStatus
	To   model.ManuscriptStatus
}

// ManuscriptStateMachine holds the legal editorial transitions:
// draft -> review -> approved | cancelled.
type ManuscriptStateMachine struct {
	allowedTransitions map[manuscriptTransition]bool
}

func NewManuscriptStateMachine() *ManuscriptStateMachine {
	sm := &ManuscriptStateMachine{allowedTransitions: make(map[manuscriptTransition]bool)}
	for _, t := range []manuscriptTransition{
		{model.ManuscriptStatusDraft, model.ManuscriptStatusReview},
		{model.ManuscriptStatusReview, model.ManuscriptStatusApproved},
		{model.ManuscriptStatusReview, model.ManuscriptStatusCancelled},
	} {
		sm.allowedTransitions[t] = true
	}
	return sm
}

// CanTransition reports whether from -> to is a legal single step. Re-applying a
// transition (from == to) is never legal.
func (sm *ManuscriptStateMachine) CanTransition(from, to model.ManuscriptStatus) bool {
	if from == to {
		return false
	}
	return sm.allowedTransitions[manuscriptTransition{From: from, To: to}]
}

// ValidateTransition returns an InvalidTransitionError when m cannot move to to.
func (sm *ManuscriptStateMachine) ValidateTransition(m *model.Manuscript, to model.ManuscriptStatus) error {
	if !sm.CanTransition(m.Status, to) {
		return model.NewInvalidTransitionError("naskah", m.ID.String(), m.Status, to)
	}
	return nil
}

// TaskProgressStateMachine advances pipeline rows: pending -> in_progress -> completed.
// overdue is observed from the deadline and never set through it.
type TaskProgressStateMachine struct {
	repo TaskProgressRepository
}

func NewTaskProgressStateMachine(repo TaskProgressRepository) *TaskProgressStateMachine {
	return &TaskProgressStateMachine{repo: repo}
}

// Advance applies the transition to row and persists it with a compare-and-swap on
// the stored status and version. row is updated in place on success.
func (sm *TaskProgressStateMachine) Advance(
	ctx context.Context,
	tx *gorm.DB,
	row *model.TaskProgress,
	to model.TaskStatus,
	percentage *int,
	now time.Time,
) error {
	if row == nil {
		return fmt.Errorf("task progress cannot be nil")
	}

	from := row.StoredStatus()
	if !sm.canTransition(from, to) {
		return model.NewInvalidTransitionError("progres_tugas", row.ID.String(), from, to)
	}

	expectedStatus := row.Status
	expectedVersion := row.Version
	next := *row

	switch to {
	case model.TaskStatusInProgress:
		if percentage != nil {
			if *percentage >= 100 {
				return model.NewValidationError("persentase", "must be below 100 while in progress")
			}
			next.Percentage = *percentage
		}
		if next.StartedAt == nil {
			started := now
			next.StartedAt = &started
		}
	case model.TaskStatusCompleted:
		if percentage != nil && *percentage != 100 {
			return model.NewValidationError("persentase", "must be 100 to complete a task")
		}
		next.Percentage = 100
		if next.StartedAt == nil {
			// legacy rows completed straight from in_progress without a start stamp
			started := now
			next.StartedAt = &started
		}
		completed := now
		if completed.Before(*next.StartedAt) {
			completed = *next.StartedAt
		}
		next.CompletedAt = &completed
	}
	next.Status = to
	next.Version = expectedVersion + 1

	ok, err := sm.repo.UpdateTaskProgressInTx(ctx, tx, &next, expectedStatus, expectedVersion)
	if err != nil {
		return err
	}
	if !ok {
		return sm.conflict(ctx, tx, row, from, to)
	}

	*row = next
	return nil
}

// Assign updates PIC, deadline and note of an unfinished row.
func (sm *TaskProgressStateMachine) Assign(ctx context.Context, tx *gorm.DB, row *model.TaskProgress, update func(*model.TaskProgress)) error {
	from := row.StoredStatus()
	if from == model.TaskStatusCompleted {
		return model.NewInvalidTransitionError("progres_tugas", row.ID.String(), from, from)
	}

	expectedStatus := row.Status
	expectedVersion := row.Version
	next := *row
	update(&next)
	next.Version = expectedVersion + 1

	ok, err := sm.repo.UpdateTaskProgressInTx(ctx, tx, &next, expectedStatus, expectedVersion)
	if err != nil {
		return err
	}
	if !ok {
		return sm.conflict(ctx, tx, row, from, from)
	}
	*row = next
	return nil
}

// conflict classifies a lost compare-and-swap: a status change means the requested
// transition is no longer legal, anything else is a plain concurrent write.
func (sm *TaskProgressStateMachine) conflict(ctx context.Context, tx *gorm.DB, row *model.TaskProgress, from, to model.TaskStatus) error {
	current, err := sm.repo.GetTaskProgressByIDInTx(ctx, tx, row.ID)
	if err != nil {
		return err
	}
	if current.StoredStatus() != from {
		return model.NewInvalidTransitionError("progres_tugas", row.ID.String(), current.StoredStatus(), to)
	}
	return model.ConcurrentModificationError("progres_tugas", row.ID)
}

func (sm *TaskProgressStateMachine) canTransition(from, to model.TaskStatus) bool {
	switch to {
	case model.TaskStatusInProgress:
		return from == model.TaskStatusPending || from == model.TaskStatusInProgress
	case model.TaskStatusCompleted:
		return from == model.TaskStatusInProgress
	default:
		// pending cannot be re-entered and overdue is derived
		return false
	}
}

// DeriveBookStatus computes status_keseluruhan from the book and its pipeline rows.
// The print stage is the last row in snapshot order.
func DeriveBookStatus(book *model.Book, tasks []model.TaskProgress) model.BookStatus {
	if book.Status == model.BookStatusCancelled {
		return model.BookStatusCancelled
	}
	if len(tasks) == 0 {
		return model.BookStatusDraft
	}

	ordered := make([]model.TaskProgress, len(tasks))
	copy(ordered, tasks)
	sortTasksByOrder(ordered)

	printStage := ordered[len(ordered)-1]
	if printStage.StoredStatus() == model.TaskStatusCompleted && book.ActualPrintDate != nil {
		return model.BookStatusPublished
	}

	started := false
	for i := range ordered {
		if ordered[i].StoredStatus() != model.TaskStatusPending {
			started = true
			break
		}
	}
	if !started {
		return model.BookStatusDraft
	}

	for i := range ordered {
		if ordered[i].StoredStatus() != model.TaskStatusCompleted {
			if ordered[i].Phase == model.StagePhaseReview {
				return model.BookStatusReview
			}
			return model.BookStatusEditing
		}
	}
	// every stage is done but the print date is still missing
	return model.BookStatusEditing
}

// sortTasksByOrder sorts rows by snapshot position, breaking ties by id.
func sortTasksByOrder(tasks []model.TaskProgress) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Order != tasks[j].Order {
			return tasks[i].Order < tasks[j].Order
		}
		return tasks[i].ID.String() < tasks[j].ID.String()
	})
}
