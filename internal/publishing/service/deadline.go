package service

import (
	"time"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

const (
	criticalWindowDays = 3
	warningWindowDays  = 7
)

// Clock returns the current instant. Services take one so tests can pin "today".
type Clock func() time.Time

// Calendar turns instants into civil dates of the reporting timezone.
type Calendar struct {
	Now      Clock
	Location *time.Location
}

// NewCalendar returns a Calendar; nil arguments fall back to time.Now and UTC.
func NewCalendar(now Clock, loc *time.Location) Calendar {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{Now: now, Location: loc}
}

// Today is the current calendar date in the reporting timezone, as midnight UTC.
func (c Calendar) Today() time.Time {
	return model.CivilDateIn(c.Now(), c.Location)
}

// DaysUntil counts whole calendar days from today to target. Both are reduced to
// civil dates first so the result never depends on the time of day.
func DaysUntil(target, today time.Time) int {
	t := model.CivilDate(target)
	d := model.CivilDate(today)
	return int(t.Sub(d).Hours() / 24)
}

// ClassifyDeadline buckets the days left until target relative to today.
func ClassifyDeadline(target, today time.Time) (model.DeadlineClass, int) {
	days := DaysUntil(target, today)
	switch {
	case days < 0:
		return model.DeadlineOverdue, days
	case days <= criticalWindowDays:
		return model.DeadlineCritical, days
	case days <= warningWindowDays:
		return model.DeadlineWarning, days
	default:
		return model.DeadlineNormal, days
	}
}

// NewBookView attaches the deadline classification to a book without touching it.
func NewBookView(book model.Book, today time.Time) model.BookView {
	class, days := ClassifyDeadline(book.TargetPrintDate, today)
	return model.BookView{Book: book, DaysUntilTarget: days, DeadlineClass: class}
}
