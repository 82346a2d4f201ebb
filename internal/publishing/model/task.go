package model

import (
	"time"

	"github.com/google/uuid"
)

// MasterTask is one production stage of the stage catalog.
type MasterTask struct {
	BaseModel
	Name        string     `gorm:"type:varchar(255);column:nama_tugas;not null" json:"nama_tugas"`
	Order       int        `gorm:"column:urutan;not null" json:"urutan"`
	Phase       StagePhase `gorm:"type:varchar(20);column:fase;not null;default:'editing'" json:"fase"`
	Description string     `gorm:"type:text;column:deskripsi" json:"deskripsi"`
}

func (m *MasterTask) TableName() string {
	return "master_tugas"
}

// CatalogStateID is the fixed primary key of the single catalog version row.
const CatalogStateID = 1

// CatalogState holds the version counter of the stage catalog.
type CatalogState struct {
	ID        int       `gorm:"column:id;primaryKey" json:"id"`
	Version   int64     `gorm:"column:versi;not null;default:0" json:"versi"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (c *CatalogState) TableName() string {
	return "katalog_tahap"
}

// TaskProgress is the per-book instance of a catalog stage. Name, order and phase are
// copied from the catalog when the book is created and never follow later catalog edits.
type TaskProgress struct {
	BaseModel
	BookID       uuid.UUID  `gorm:"type:char(36);column:buku_id;not null;uniqueIndex:idx_progres_buku_tugas;index" json:"buku_id"`
	MasterTaskID uuid.UUID  `gorm:"type:char(36);column:master_tugas_id;not null;uniqueIndex:idx_progres_buku_tugas" json:"master_tugas_id"`
	TaskName     string     `gorm:"type:varchar(255);column:nama_tugas;not null" json:"nama_tugas"`
	Order        int        `gorm:"column:urutan;not null" json:"urutan"`
	Phase        StagePhase `gorm:"type:varchar(20);column:fase;not null" json:"fase"`
	PICID        *uuid.UUID `gorm:"type:char(36);column:pic_id;index" json:"pic_id,omitempty"`
	Deadline     *time.Time `gorm:"column:deadline" json:"deadline,omitempty"`
	Status       TaskStatus `gorm:"type:varchar(20);column:status;not null" json:"status"`
	Percentage   int        `gorm:"column:persentase;not null;default:0" json:"persentase"`
	StartedAt    *time.Time `gorm:"column:tanggal_mulai" json:"tanggal_mulai,omitempty"`
	CompletedAt  *time.Time `gorm:"column:tanggal_selesai" json:"tanggal_selesai,omitempty"`
	Note         string     `gorm:"type:text;column:catatan" json:"catatan"`
	Version      int64      `gorm:"column:versi;not null;default:1" json:"versi"`
}

func (t *TaskProgress) TableName() string {
	return "progres_tugas"
}

// StoredStatus is the underlying state of the task. Legacy rows that persisted
// "overdue" are read back as the state their timestamps imply.
func (t *TaskProgress) StoredStatus() TaskStatus {
	if t.Status != TaskStatusOverdue {
		return t.Status
	}
	switch {
	case t.CompletedAt != nil:
		return TaskStatusCompleted
	case t.StartedAt != nil:
		return TaskStatusInProgress
	default:
		return TaskStatusPending
	}
}

// EffectiveStatus reports overdue for an unfinished task whose deadline lies before today.
// today must be a civil date (midnight UTC).
func (t *TaskProgress) EffectiveStatus(today time.Time) TaskStatus {
	stored := t.StoredStatus()
	if stored == TaskStatusCompleted || t.Deadline == nil {
		return stored
	}
	if CivilDate(*t.Deadline).Before(today) {
		return TaskStatusOverdue
	}
	return stored
}

// TaskProgressView is a task row with its read-time status.
type TaskProgressView struct {
	TaskProgress
	EffectiveStatus TaskStatus `json:"status_efektif"`
}

// AssignTaskDTO updates the assignment fields of a task. Nil fields are left unchanged.
type AssignTaskDTO struct {
	PICID    *uuid.UUID `json:"pic_id,omitempty"`
	Deadline *string    `json:"deadline,omitempty"`
	Note     *string    `json:"catatan,omitempty"`
}

// CreateMasterTaskDTO appends a stage to the catalog.
type CreateMasterTaskDTO struct {
	Name        string `json:"nama_tugas" yaml:"nama_tugas"`
	Phase       string `json:"fase" yaml:"fase"`
	Description string `json:"deskripsi" yaml:"deskripsi"`
}

// UpdateMasterTaskDTO edits a catalog stage. Nil fields are left unchanged.
type UpdateMasterTaskDTO struct {
	Name        *string `json:"nama_tugas,omitempty"`
	Phase       *string `json:"fase,omitempty"`
	Description *string `json:"deskripsi,omitempty"`
}
