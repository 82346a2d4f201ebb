package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, sqlMock
}

var progressColumns = []string{"id", "buku_id", "master_tugas_id", "nama_tugas", "urutan", "fase", "status", "persentase", "versi", "created_at", "updated_at"}

func TestTaskProgressStore_GetTaskProgressByIDInTx(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	store := NewTaskProgressStore()
	ctx := context.Background()

	sqlMock.ExpectBegin()
	tx := db.Begin()

	id, bookID, taskID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()
	sqlMock.ExpectQuery(`SELECT \* FROM "progres_tugas" WHERE id = \$1 ORDER BY "progres_tugas"."id" LIMIT \$2 FOR UPDATE`).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows(progressColumns).
			AddRow(id.String(), bookID.String(), taskID.String(), "Editing", 2, "editing", "in_progress", 40, 3, now, now))

	row, err := store.GetTaskProgressByIDInTx(ctx, tx, id)
	require.NoError(t, err)
	assert.Equal(t, id, row.ID)
	assert.Equal(t, bookID, row.BookID)
	assert.Equal(t, model.TaskStatusInProgress, row.Status)
	assert.Equal(t, 40, row.Percentage)
	assert.Equal(t, int64(3), row.Version)

	missing := uuid.New()
	sqlMock.ExpectQuery(`SELECT \* FROM "progres_tugas" WHERE id = \$1`).
		WithArgs(missing, 1).
		WillReturnRows(sqlmock.NewRows(progressColumns))

	_, err = store.GetTaskProgressByIDInTx(ctx, tx, missing)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestTaskProgressStore_GetTaskProgressByBookIDInTx(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	store := NewTaskProgressStore()

	sqlMock.ExpectBegin()
	tx := db.Begin()

	bookID := uuid.New()
	now := time.Now().UTC()
	sqlMock.ExpectQuery(`SELECT \* FROM "progres_tugas" WHERE buku_id = \$1 ORDER BY urutan ASC,id ASC`).
		WithArgs(bookID).
		WillReturnRows(sqlmock.NewRows(progressColumns).
			AddRow(uuid.NewString(), bookID.String(), uuid.NewString(), "Review", 1, "review", "completed", 100, 3, now, now).
			AddRow(uuid.NewString(), bookID.String(), uuid.NewString(), "Editing", 2, "editing", "pending", 0, 1, now, now))

	rows, err := store.GetTaskProgressByBookIDInTx(context.Background(), tx, bookID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Review", rows[0].TaskName)
	assert.Equal(t, model.StagePhaseReview, rows[0].Phase)
}

func TestTaskProgressStore_UpdateTaskProgressInTx(t *testing.T) {
	ctx := context.Background()
	row := pendingRow()
	row.Status = model.TaskStatusInProgress
	row.Version = 2

	t.Run("compare and swap succeeds", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		sqlMock.ExpectBegin()
		tx := db.Begin()

		sqlMock.ExpectExec(`UPDATE "progres_tugas" SET .* WHERE \(status = \$\d+ AND versi = \$\d+\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := NewTaskProgressStore().UpdateTaskProgressInTx(ctx, tx, row, model.TaskStatusPending, 1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("stale version writes nothing", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		sqlMock.ExpectBegin()
		tx := db.Begin()

		sqlMock.ExpectExec(`UPDATE "progres_tugas" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := NewTaskProgressStore().UpdateTaskProgressInTx(ctx, tx, row, model.TaskStatusPending, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("database errors are wrapped", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		sqlMock.ExpectBegin()
		tx := db.Begin()

		sqlMock.ExpectExec(`UPDATE "progres_tugas" SET`).
			WillReturnError(assert.AnError)

		_, err := NewTaskProgressStore().UpdateTaskProgressInTx(ctx, tx, row, model.TaskStatusPending, 1)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestTaskProgressStore_DeleteTaskProgressByBookIDInTx(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	sqlMock.ExpectBegin()
	tx := db.Begin()

	bookID := uuid.New()
	sqlMock.ExpectExec(`DELETE FROM "progres_tugas" WHERE buku_id = \$1`).
		WithArgs(bookID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, NewTaskProgressStore().DeleteTaskProgressByBookIDInTx(context.Background(), tx, bookID))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestTaskProgressStore_CreateEmpty(t *testing.T) {
	db, sqlMock := setupMockDB(t)

	rows, err := NewTaskProgressStore().CreateTaskProgressInTx(context.Background(), db, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
