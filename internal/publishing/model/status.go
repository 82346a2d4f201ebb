package model

import "strings"

// ManuscriptStatus is the editorial approval state of a manuscript.
type ManuscriptStatus string

const (
	ManuscriptStatusDraft     ManuscriptStatus = "draft"
	ManuscriptStatusReview    ManuscriptStatus = "review"
	ManuscriptStatusApproved  ManuscriptStatus = "approved"
	ManuscriptStatusCancelled ManuscriptStatus = "cancelled"
)

// canceledAlias is the legacy spelling still sent by older dashboard views.
const canceledAlias = "canceled"

func (s ManuscriptStatus) String() string { return string(s) }

// IsTerminal reports whether no further lifecycle transition is possible.
func (s ManuscriptStatus) IsTerminal() bool {
	return s == ManuscriptStatusApproved || s == ManuscriptStatusCancelled
}

// ParseManuscriptStatus accepts the closed manuscript vocabulary plus the "canceled" alias.
func ParseManuscriptStatus(value string) (ManuscriptStatus, error) {
	switch v := normaliseStatus(value); ManuscriptStatus(v) {
	case ManuscriptStatusDraft, ManuscriptStatusReview, ManuscriptStatusApproved, ManuscriptStatusCancelled:
		return ManuscriptStatus(v), nil
	}
	return "", NewValidationError("status", "must be one of draft, review, approved, cancelled")
}

// BookStatus is the overall production status of a book (status_keseluruhan).
type BookStatus string

const (
	BookStatusDraft     BookStatus = "draft"
	BookStatusReview    BookStatus = "review"
	BookStatusEditing   BookStatus = "editing"
	BookStatusPublished BookStatus = "published"
	BookStatusCancelled BookStatus = "cancelled"
)

func (s BookStatus) String() string { return string(s) }

// IsTerminal reports whether the book left the production pipeline.
func (s BookStatus) IsTerminal() bool {
	return s == BookStatusPublished || s == BookStatusCancelled
}

func ParseBookStatus(value string) (BookStatus, error) {
	switch v := normaliseStatus(value); BookStatus(v) {
	case BookStatusDraft, BookStatusReview, BookStatusEditing, BookStatusPublished, BookStatusCancelled:
		return BookStatus(v), nil
	}
	return "", NewValidationError("status_keseluruhan", "must be one of draft, review, editing, published, cancelled")
}

// TaskStatus is the state of one production stage of a book.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusOverdue    TaskStatus = "overdue" // derived at read time, never stored by the service
)

func (s TaskStatus) String() string { return string(s) }

func ParseTaskStatus(value string) (TaskStatus, error) {
	switch TaskStatus(strings.ToLower(strings.TrimSpace(value))) {
	case TaskStatusPending:
		return TaskStatusPending, nil
	case TaskStatusInProgress:
		return TaskStatusInProgress, nil
	case TaskStatusCompleted:
		return TaskStatusCompleted, nil
	case TaskStatusOverdue:
		return TaskStatusOverdue, nil
	}
	return "", NewValidationError("status", "must be one of pending, in_progress, completed, overdue")
}

// StagePhase is the book status a stage stands for while it is the active one.
type StagePhase string

const (
	StagePhaseReview  StagePhase = "review"
	StagePhaseEditing StagePhase = "editing"
)

func ParseStagePhase(value string) (StagePhase, error) {
	switch StagePhase(strings.ToLower(strings.TrimSpace(value))) {
	case "", StagePhaseEditing:
		return StagePhaseEditing, nil
	case StagePhaseReview:
		return StagePhaseReview, nil
	}
	return "", NewValidationError("fase", "must be one of review, editing")
}

// DeadlineClass is the urgency bucket derived from days left until a target date.
type DeadlineClass string

const (
	DeadlineNormal   DeadlineClass = "normal"
	DeadlineWarning  DeadlineClass = "warning"
	DeadlineCritical DeadlineClass = "critical"
	DeadlineOverdue  DeadlineClass = "overdue"
)

func normaliseStatus(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == canceledAlias {
		return string(ManuscriptStatusCancelled)
	}
	return v
}

func ParseDeadlineClass(value string) (DeadlineClass, error) {
	switch c := DeadlineClass(strings.ToLower(strings.TrimSpace(value))); c {
	case DeadlineNormal, DeadlineWarning, DeadlineCritical, DeadlineOverdue:
		return c, nil
	}
	return "", NewValidationError("deadline", "must be one of normal, warning, critical, overdue")
}
