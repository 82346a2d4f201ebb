package model

import (
	"time"

	"github.com/google/uuid"
)

// Metrics are the headline figures of the dashboard.
type Metrics struct {
	TotalBooks            int                   `json:"total_buku"`
	ActiveBooks           int                   `json:"buku_aktif"`
	PublishedBooks        int                   `json:"buku_terbit"`
	AverageProductionDays float64               `json:"avg_production_days"`
	OverduePercentage     float64               `json:"overdue_percentage"`
	DeadlineBuckets       map[DeadlineClass]int `json:"deadline_buckets"`
}

// TaskPerformance is the mean completion time of one catalog stage.
type TaskPerformance struct {
	MasterTaskID   uuid.UUID `json:"master_tugas_id"`
	TaskName       string    `json:"nama_tugas"`
	Order          int       `json:"urutan"`
	AverageDays    float64   `json:"avg_days"`
	CompletedTasks int       `json:"completed_tasks"`
}

// TeamWorkload is the current load of one team member.
type TeamWorkload struct {
	UserID          uuid.UUID `json:"user_id"`
	FullName        string    `json:"nama_lengkap"`
	TotalTasks      int       `json:"total_tasks"`
	CompletedTasks  int       `json:"completed_tasks"`
	InProgressTasks int       `json:"in_progress_tasks"`
	OverdueTasks    int       `json:"overdue_tasks"`
}

// TeamProductivity summarises what one team member has finished.
type TeamProductivity struct {
	UserID         uuid.UUID `json:"user_id"`
	FullName       string    `json:"nama_lengkap"`
	TotalTasks     int       `json:"total_tasks"`
	CompletedTasks int       `json:"completed_tasks"`
	BooksTouched   int       `json:"books_touched"`
	CompletionRate float64   `json:"completion_rate"`
}

// Report is the full dashboard aggregate.
type Report struct {
	GeneratedAt      time.Time          `json:"generated_at"`
	Today            string             `json:"today"`
	Metrics          Metrics            `json:"metrics"`
	TaskPerformance  []TaskPerformance  `json:"task_performance"`
	TeamWorkload     []TeamWorkload     `json:"team_workload"`
	TeamProductivity []TeamProductivity `json:"team_productivity"`
}

// ExportResult describes a report written to export storage.
type ExportResult struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}
