package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

// TaskProgressRepository persists pipeline rows inside a caller-owned transaction.
type TaskProgressRepository interface {
	// GetTaskProgressByIDInTx locks the row for the rest of tx.
	GetTaskProgressByIDInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.TaskProgress, error)
	GetTaskProgressByBookIDInTx(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) ([]model.TaskProgress, error)
	CreateTaskProgressInTx(ctx context.Context, tx *gorm.DB, rows []model.TaskProgress) ([]model.TaskProgress, error)
	// UpdateTaskProgressInTx writes row only if the stored status and version still equal
	// the expected ones. It reports whether a row was written.
	UpdateTaskProgressInTx(ctx context.Context, tx *gorm.DB, row *model.TaskProgress, expectedStatus model.TaskStatus, expectedVersion int64) (bool, error)
	DeleteTaskProgressByBookIDInTx(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) error
}

// TaskProgressStore is the GORM implementation of TaskProgressRepository.
type TaskProgressStore struct{}

func NewTaskProgressStore() *TaskProgressStore {
	return &TaskProgressStore{}
}

func (s *TaskProgressStore) GetTaskProgressByIDInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.TaskProgress, error) {
	var row model.TaskProgress
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundError("progres_tugas", id)
		}
		return nil, fmt.Errorf("failed to retrieve task progress: %w", err)
	}
	return &row, nil
}

func (s *TaskProgressStore) GetTaskProgressByBookIDInTx(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) ([]model.TaskProgress, error) {
	var rows []model.TaskProgress
	if err := tx.WithContext(ctx).Where("buku_id = ?", bookID).Order("urutan ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve task progress for book %s: %w", bookID, err)
	}
	return rows, nil
}

func (s *TaskProgressStore) CreateTaskProgressInTx(ctx context.Context, tx *gorm.DB, rows []model.TaskProgress) ([]model.TaskProgress, error) {
	if len(rows) == 0 {
		return []model.TaskProgress{}, nil
	}
	if err := tx.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to create task progress: %w", err)
	}
	return rows, nil
}

func (s *TaskProgressStore) UpdateTaskProgressInTx(ctx context.Context, tx *gorm.DB, row *model.TaskProgress, expectedStatus model.TaskStatus, expectedVersion int64) (bool, error) {
	result := tx.WithContext(ctx).
		Model(row).
		Where("status = ? AND versi = ?", expectedStatus, expectedVersion).
		Select("pic_id", "deadline", "status", "persentase", "tanggal_mulai", "tanggal_selesai", "catatan", "versi", "updated_at").
		Updates(row)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update task progress %s: %w", row.ID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *TaskProgressStore) DeleteTaskProgressByBookIDInTx(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) error {
	if err := tx.WithContext(ctx).Where("buku_id = ?", bookID).Delete(&model.TaskProgress{}).Error; err != nil {
		return fmt.Errorf("failed to delete task progress for book %s: %w", bookID, err)
	}
	return nil
}
