package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

func printedBook(approved, printed string) model.Book {
	p := date(printed)
	return model.Book{
		ApprovedAt:      date(approved).Add(10 * time.Hour),
		TargetPrintDate: date(printed),
		ActualPrintDate: &p,
		Status:          model.BookStatusPublished,
	}
}

func activeBook(target string) model.Book {
	return model.Book{
		ApprovedAt:      date("2026-01-01"),
		TargetPrintDate: date(target),
		Status:          model.BookStatusEditing,
	}
}

func TestAverageProductionTime(t *testing.T) {
	t.Run("empty set is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, AverageProductionTime(nil, time.UTC))
		assert.Equal(t, 0.0, AverageProductionTime([]model.Book{activeBook("2026-04-01")}, time.UTC))
	})

	t.Run("mean over printed books only", func(t *testing.T) {
		books := []model.Book{
			printedBook("2026-03-01", "2026-03-11"),
			printedBook("2026-03-01", "2026-03-21"),
			printedBook("2026-03-01", "2026-03-02"),
			activeBook("2026-04-01"),
		}
		assert.Equal(t, 10.3, AverageProductionTime(books, time.UTC))
	})

	t.Run("approval date follows the reporting timezone", func(t *testing.T) {
		// 20:00 UTC on the 1st is the 2nd in Jakarta
		p := date("2026-03-12")
		book := model.Book{
			ApprovedAt:      time.Date(2026, time.March, 1, 20, 0, 0, 0, time.UTC),
			ActualPrintDate: &p,
			Status:          model.BookStatusPublished,
		}
		assert.Equal(t, 11.0, AverageProductionTime([]model.Book{book}, time.UTC))
		assert.Equal(t, 10.0, AverageProductionTime([]model.Book{book}, time.FixedZone("WIB", 7*60*60)))
	})
}

func TestOverduePercentage(t *testing.T) {
	today := date("2026-03-10")

	assert.Equal(t, 0.0, OverduePercentage(nil, today))
	assert.Equal(t, 0.0, OverduePercentage([]model.Book{printedBook("2026-01-01", "2026-02-01")}, today))

	cancelled := activeBook("2026-03-01")
	cancelled.Status = model.BookStatusCancelled
	books := []model.Book{
		activeBook("2026-03-09"),
		activeBook("2026-03-10"),
		activeBook("2026-03-20"),
		cancelled,
		printedBook("2026-01-01", "2026-02-01"),
	}
	assert.Equal(t, 33.3, OverduePercentage(books, today))
}

func TestDeadlineBuckets(t *testing.T) {
	today := date("2026-03-10")

	empty := DeadlineBuckets(nil, today)
	assert.Len(t, empty, 4)
	for _, n := range empty {
		assert.Equal(t, 0, n)
	}

	books := []model.Book{
		activeBook("2026-03-09"),
		activeBook("2026-03-12"),
		activeBook("2026-03-15"),
		activeBook("2026-04-09"),
		activeBook("2026-04-10"),
		printedBook("2026-01-01", "2026-01-20"),
	}
	assert.Equal(t, map[model.DeadlineClass]int{
		model.DeadlineOverdue:  1,
		model.DeadlineCritical: 1,
		model.DeadlineWarning:  1,
		model.DeadlineNormal:   2,
	}, DeadlineBuckets(books, today))
}

type progressBuilder struct {
	bookID uuid.UUID
}

func (b progressBuilder) row(task model.MasterTask, status model.TaskStatus, pic *uuid.UUID, startedDays, tookDays float64) model.TaskProgress {
	row := model.TaskProgress{
		BookID:       b.bookID,
		MasterTaskID: task.ID,
		TaskName:     task.Name,
		Order:        task.Order,
		Phase:        task.Phase,
		Status:       status,
		PICID:        pic,
	}
	row.ID = uuid.New()
	if status == model.TaskStatusInProgress || status == model.TaskStatusCompleted {
		started := date("2026-02-01").Add(time.Duration(startedDays * 24 * float64(time.Hour)))
		row.StartedAt = &started
		if status == model.TaskStatusCompleted {
			completed := started.Add(time.Duration(tookDays * 24 * float64(time.Hour)))
			row.CompletedAt = &completed
			row.Percentage = 100
		}
	}
	return row
}

func masterTask(name string, order int) model.MasterTask {
	task := model.MasterTask{Name: name, Order: order, Phase: model.StagePhaseEditing}
	task.ID = uuid.New()
	return task
}

func TestTaskPerformance(t *testing.T) {
	review := masterTask("Review", 1)
	editing := masterTask("Editing", 2)
	layout := masterTask("Layout", 3)
	removed := masterTask("Proofread", 4)
	catalog := model.NewStageCatalog(7, []model.MasterTask{layout, review, editing})

	bookA := progressBuilder{bookID: uuid.New()}
	bookB := progressBuilder{bookID: uuid.New()}
	progress := []model.TaskProgress{
		bookA.row(review, model.TaskStatusCompleted, nil, 0, 2),
		bookB.row(review, model.TaskStatusCompleted, nil, 1, 3.5),
		bookA.row(editing, model.TaskStatusInProgress, nil, 2, 0),
		bookB.row(editing, model.TaskStatusPending, nil, 0, 0),
		bookA.row(removed, model.TaskStatusCompleted, nil, 0, 1),
	}

	got := TaskPerformance(catalog, progress)
	require.Len(t, got, 4)

	assert.Equal(t, "Review", got[0].TaskName)
	assert.Equal(t, 1, got[0].Order)
	assert.Equal(t, 2.8, got[0].AverageDays)
	assert.Equal(t, 2, got[0].CompletedTasks)

	assert.Equal(t, "Editing", got[1].TaskName)
	assert.Equal(t, 0.0, got[1].AverageDays)
	assert.Equal(t, 0, got[1].CompletedTasks)

	assert.Equal(t, "Layout", got[2].TaskName)
	assert.Equal(t, 0, got[2].CompletedTasks)

	assert.Equal(t, removed.ID, got[3].MasterTaskID)
	assert.Equal(t, "Proofread", got[3].TaskName)
	assert.Equal(t, 1.0, got[3].AverageDays)

	t.Run("input order does not matter", func(t *testing.T) {
		reversed := make([]model.TaskProgress, len(progress))
		for i := range progress {
			reversed[len(progress)-1-i] = progress[i]
		}
		assert.Equal(t, got, TaskPerformance(catalog, reversed))
	})

	t.Run("no catalog", func(t *testing.T) {
		only := TaskPerformance(nil, progress)
		require.Len(t, only, 2)
		assert.Equal(t, "Review", only[0].TaskName)
		assert.Equal(t, "Proofread", only[1].TaskName)
	})
}

func TestTeamWorkloadAndProductivity(t *testing.T) {
	today := date("2026-03-10")
	editing := masterTask("Editing", 1)
	layout := masterTask("Layout", 2)

	rina := model.User{FullName: "Rina"}
	rina.ID = uuid.New()
	agus := model.User{FullName: "Agus"}
	agus.ID = uuid.New()
	idle := model.User{FullName: "Wati"}
	idle.ID = uuid.New()
	team := []model.User{rina, idle, agus}

	book1 := progressBuilder{bookID: uuid.New()}
	book2 := progressBuilder{bookID: uuid.New()}
	late := date("2026-03-01")

	overdueRow := book2.row(layout, model.TaskStatusInProgress, &rina.ID, 0, 0)
	overdueRow.Deadline = &late
	finishedLate := book1.row(layout, model.TaskStatusCompleted, &agus.ID, 0, 1)
	finishedLate.Deadline = &late

	progress := []model.TaskProgress{
		book1.row(editing, model.TaskStatusCompleted, &rina.ID, 0, 2),
		overdueRow,
		book2.row(editing, model.TaskStatusPending, &rina.ID, 0, 0),
		finishedLate,
		book1.row(editing, model.TaskStatusPending, nil, 0, 0),
	}

	workload := TeamWorkload(team, progress, today)
	require.Len(t, workload, 3)
	assert.Equal(t, []string{"Agus", "Rina", "Wati"}, []string{workload[0].FullName, workload[1].FullName, workload[2].FullName})

	assert.Equal(t, model.TeamWorkload{UserID: agus.ID, FullName: "Agus", TotalTasks: 1, CompletedTasks: 1}, workload[0])
	assert.Equal(t, model.TeamWorkload{
		UserID:          rina.ID,
		FullName:        "Rina",
		TotalTasks:      3,
		CompletedTasks:  1,
		InProgressTasks: 1,
		OverdueTasks:    1,
	}, workload[1])
	assert.Equal(t, model.TeamWorkload{UserID: idle.ID, FullName: "Wati"}, workload[2])

	productivity := TeamProductivity(team, progress)
	require.Len(t, productivity, 3)
	assert.Equal(t, 100.0, productivity[0].CompletionRate)
	assert.Equal(t, 1, productivity[0].BooksTouched)
	assert.Equal(t, 33.3, productivity[1].CompletionRate)
	assert.Equal(t, 2, productivity[1].BooksTouched)
	assert.Equal(t, 0.0, productivity[2].CompletionRate)
	assert.Equal(t, 0, productivity[2].TotalTasks)

	t.Run("assigned users outside the team still appear", func(t *testing.T) {
		outsider := uuid.New()
		rows := append([]model.TaskProgress{}, progress...)
		rows = append(rows, book2.row(editing, model.TaskStatusPending, &outsider, 0, 0))
		workload := TeamWorkload(team, rows, today)
		require.Len(t, workload, 4)
		// an unnamed member sorts first
		assert.Equal(t, outsider, workload[0].UserID)
		assert.Equal(t, 1, workload[0].TotalTasks)
	})

	t.Run("input order does not matter", func(t *testing.T) {
		reversed := []model.User{agus, idle, rina}
		assert.Equal(t, workload, TeamWorkload(reversed, progress, today))
	})
}

func TestBuildReport(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	in := ReportInput{
		Books: []model.Book{
			printedBook("2026-01-01", "2026-01-31"),
			activeBook("2026-03-05"),
			activeBook("2026-05-01"),
		},
		Catalog: model.NewStageCatalog(1, nil),
	}

	report := BuildReport(in, now, time.UTC)
	assert.Equal(t, "2026-03-10", report.Today)
	assert.Equal(t, now, report.GeneratedAt)
	assert.Equal(t, 3, report.Metrics.TotalBooks)
	assert.Equal(t, 2, report.Metrics.ActiveBooks)
	assert.Equal(t, 1, report.Metrics.PublishedBooks)
	assert.Equal(t, 30.0, report.Metrics.AverageProductionDays)
	assert.Equal(t, 50.0, report.Metrics.OverduePercentage)
	assert.Equal(t, 1, report.Metrics.DeadlineBuckets[model.DeadlineOverdue])
	assert.Empty(t, report.TaskPerformance)
	assert.Empty(t, report.TeamWorkload)
	assert.NotNil(t, report.TeamWorkload)
}
