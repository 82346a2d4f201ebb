package service

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

// Aggregations below are pure: they read their inputs and never touch storage.

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}

// AverageProductionTime is the mean number of days from approval to the actual print
// date over books that have been printed. An empty set yields 0.
func AverageProductionTime(books []model.Book, loc *time.Location) float64 {
	total, n := 0, 0
	for _, b := range books {
		if b.ActualPrintDate == nil {
			continue
		}
		total += DaysUntil(*b.ActualPrintDate, model.CivilDateIn(b.ApprovedAt, loc))
		n++
	}
	if n == 0 {
		return 0
	}
	return roundOneDecimal(float64(total) / float64(n))
}

// OverduePercentage is the share of non-terminal books whose target date has passed.
// Zero non-terminal books yields 0.
func OverduePercentage(books []model.Book, today time.Time) float64 {
	active, overdue := 0, 0
	for _, b := range books {
		if b.Status.IsTerminal() {
			continue
		}
		active++
		if DaysUntil(b.TargetPrintDate, today) < 0 {
			overdue++
		}
	}
	if active == 0 {
		return 0
	}
	return roundOneDecimal(float64(overdue) * 100 / float64(active))
}

// DeadlineBuckets counts non-terminal books per deadline class. Every class is present.
func DeadlineBuckets(books []model.Book, today time.Time) map[model.DeadlineClass]int {
	buckets := map[model.DeadlineClass]int{
		model.DeadlineNormal:   0,
		model.DeadlineWarning:  0,
		model.DeadlineCritical: 0,
		model.DeadlineOverdue:  0,
	}
	for _, b := range books {
		if b.Status.IsTerminal() {
			continue
		}
		class, _ := ClassifyDeadline(b.TargetPrintDate, today)
		buckets[class]++
	}
	return buckets
}

type taskDurations struct {
	name  string
	order int
	total float64
	count int
}

// TaskPerformance averages the elapsed days between start and completion of completed
// rows per master task. Catalog stages come first in catalog order, including those
// without completions. Stages since removed from the catalog follow in snapshot order.
func TaskPerformance(catalog *model.StageCatalog, progress []model.TaskProgress) []model.TaskPerformance {
	byTask := make(map[uuid.UUID]*taskDurations)
	for _, row := range progress {
		d, ok := byTask[row.MasterTaskID]
		if !ok {
			d = &taskDurations{name: row.TaskName, order: row.Order}
			byTask[row.MasterTaskID] = d
		}
		if row.Order < d.order {
			d.order = row.Order
		}
		if row.StoredStatus() != model.TaskStatusCompleted || row.StartedAt == nil || row.CompletedAt == nil {
			continue
		}
		d.total += row.CompletedAt.Sub(*row.StartedAt).Hours() / 24
		d.count++
	}

	out := make([]model.TaskPerformance, 0, len(byTask))
	seen := make(map[uuid.UUID]bool)
	if catalog != nil {
		for i, task := range catalog.Tasks() {
			entry := model.TaskPerformance{MasterTaskID: task.ID, TaskName: task.Name, Order: i + 1}
			if d, ok := byTask[task.ID]; ok && d.count > 0 {
				entry.AverageDays = roundOneDecimal(d.total / float64(d.count))
				entry.CompletedTasks = d.count
			}
			out = append(out, entry)
			seen[task.ID] = true
		}
	}

	removed := make([]model.TaskPerformance, 0)
	for id, d := range byTask {
		if seen[id] || d.count == 0 {
			continue
		}
		removed = append(removed, model.TaskPerformance{
			MasterTaskID:   id,
			TaskName:       d.name,
			Order:          d.order,
			AverageDays:    roundOneDecimal(d.total / float64(d.count)),
			CompletedTasks: d.count,
		})
	}
	sort.Slice(removed, func(i, j int) bool {
		if removed[i].Order != removed[j].Order {
			return removed[i].Order < removed[j].Order
		}
		return removed[i].MasterTaskID.String() < removed[j].MasterTaskID.String()
	})
	return append(out, removed...)
}

type memberTally struct {
	id         uuid.UUID
	name       string
	total      int
	completed  int
	inProgress int
	overdue    int
	books      map[uuid.UUID]bool
}

// tallyByPIC groups rows by PIC. Every team member gets an entry, assigned or not.
func tallyByPIC(team []model.User, progress []model.TaskProgress, today time.Time) []*memberTally {
	tallies := make(map[uuid.UUID]*memberTally, len(team))
	get := func(id uuid.UUID) *memberTally {
		t, ok := tallies[id]
		if !ok {
			t = &memberTally{id: id, books: make(map[uuid.UUID]bool)}
			tallies[id] = t
		}
		return t
	}
	for _, member := range team {
		get(member.ID).name = member.FullName
	}

	for _, row := range progress {
		if row.PICID == nil {
			continue
		}
		t := get(*row.PICID)
		t.total++
		t.books[row.BookID] = true
		switch row.StoredStatus() {
		case model.TaskStatusCompleted:
			t.completed++
		case model.TaskStatusInProgress:
			t.inProgress++
		}
		if row.EffectiveStatus(today) == model.TaskStatusOverdue {
			t.overdue++
		}
	}

	out := make([]*memberTally, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].id.String() < out[j].id.String()
	})
	return out
}

// TeamWorkload reports assigned, completed, in-progress and overdue tasks per PIC.
func TeamWorkload(team []model.User, progress []model.TaskProgress, today time.Time) []model.TeamWorkload {
	tallies := tallyByPIC(team, progress, today)
	out := make([]model.TeamWorkload, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, model.TeamWorkload{
			UserID:          t.id,
			FullName:        t.name,
			TotalTasks:      t.total,
			CompletedTasks:  t.completed,
			InProgressTasks: t.inProgress,
			OverdueTasks:    t.overdue,
		})
	}
	return out
}

// TeamProductivity reports completed tasks, completion rate and distinct books per PIC.
func TeamProductivity(team []model.User, progress []model.TaskProgress) []model.TeamProductivity {
	tallies := tallyByPIC(team, progress, time.Time{})
	out := make([]model.TeamProductivity, 0, len(tallies))
	for _, t := range tallies {
		rate := 0.0
		if t.total > 0 {
			rate = roundOneDecimal(float64(t.completed) * 100 / float64(t.total))
		}
		out = append(out, model.TeamProductivity{
			UserID:         t.id,
			FullName:       t.name,
			TotalTasks:     t.total,
			CompletedTasks: t.completed,
			BooksTouched:   len(t.books),
			CompletionRate: rate,
		})
	}
	return out
}

// ReportInput is one consistent read of everything a report aggregates.
type ReportInput struct {
	Books    []model.Book
	Progress []model.TaskProgress
	Team     []model.User
	Catalog  *model.StageCatalog
}

// BuildReport assembles the dashboard report from in.
func BuildReport(in ReportInput, now time.Time, loc *time.Location) model.Report {
	today := model.CivilDateIn(now, loc)

	metrics := model.Metrics{
		TotalBooks:            len(in.Books),
		AverageProductionDays: AverageProductionTime(in.Books, loc),
		OverduePercentage:     OverduePercentage(in.Books, today),
		DeadlineBuckets:       DeadlineBuckets(in.Books, today),
	}
	for _, b := range in.Books {
		switch {
		case b.Status == model.BookStatusPublished:
			metrics.PublishedBooks++
		case !b.Status.IsTerminal():
			metrics.ActiveBooks++
		}
	}

	return model.Report{
		GeneratedAt:      now.UTC(),
		Today:            today.Format(model.DateLayout),
		Metrics:          metrics,
		TaskPerformance:  TaskPerformance(in.Catalog, in.Progress),
		TeamWorkload:     TeamWorkload(in.Team, in.Progress, today),
		TeamProductivity: TeamProductivity(in.Team, in.Progress),
	}
}
