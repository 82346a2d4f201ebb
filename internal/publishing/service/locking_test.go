package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

var manuscriptColumns = []string{"id", "created_at", "updated_at", "judul", "genre", "sinopsis", "penulis_id", "target_penerbit", "status", "info_tambahan", "versi"}

var bookColumns = []string{"id", "created_at", "updated_at", "naskah_id", "penerbit_id", "pic_id", "tanggal_persetujuan", "tanggal_target_naik_cetak", "status_keseluruhan", "versi"}

// A writer that loses the compare-and-swap re-reads the row with a locking read so
// the decision is made on the latest committed state, not the transaction snapshot.
func TestManuscriptService_LostUpdateIsClassifiedFromLatestRow(t *testing.T) {
	authorID := uuid.New()
	author := auth.NewPrincipal(authorID, "Sari Penulis", []string{auth.RoleAuthor})
	calendar := NewCalendar(func() time.Time { return fixedNow }, time.UTC)

	manuscriptRow := func(id uuid.UUID, status string) *sqlmock.Rows {
		return sqlmock.NewRows(manuscriptColumns).
			AddRow(id.String(), fixedNow, fixedNow, "Laut Bercerita", "", "", authorID.String(), "[]", status, "{}", 1)
	}

	tests := []struct {
		name         string
		latestStatus string
		want         error
	}{
		{"status moved on", "review", model.ErrInvalidTransition},
		{"same status, newer version", "draft", model.ErrConcurrentModification},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, sqlMock := setupMockDB(t)
			svc := NewManuscriptService(db, NewCatalogService(db), NewTaskProgressStore(), calendar)
			id := uuid.New()

			sqlMock.ExpectBegin()
			sqlMock.ExpectQuery(`SELECT \* FROM "naskah" WHERE id = \$1 .* FOR UPDATE`).
				WillReturnRows(manuscriptRow(id, "draft"))
			sqlMock.ExpectExec(`UPDATE "naskah" SET .* WHERE \(status = \$\d+ AND versi = \$\d+\)`).
				WillReturnResult(sqlmock.NewResult(0, 0))
			sqlMock.ExpectQuery(`SELECT \* FROM "naskah" WHERE id = \$1 .* FOR UPDATE`).
				WillReturnRows(manuscriptRow(id, tt.latestStatus))
			sqlMock.ExpectRollback()

			_, err := svc.Submit(context.Background(), author, model.SubmitCommand{ManuscriptID: id})
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, sqlMock.ExpectationsWereMet())
		})
	}
}

func TestPipelineService_CancelLocksTheBook(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewPipelineService(db, NewTaskProgressStore(), NewCalendar(func() time.Time { return fixedNow }, time.UTC))
	id := uuid.New()

	bookRow := func(status string) *sqlmock.Rows {
		return sqlmock.NewRows(bookColumns).
			AddRow(id.String(), fixedNow, fixedNow, uuid.NewString(), uuid.NewString(), uuid.NewString(),
				fixedNow, fixedNow.AddDate(0, 1, 0), status, 2)
	}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(`SELECT \* FROM "buku" WHERE id = \$1 .* FOR UPDATE`).
		WillReturnRows(bookRow("editing"))
	sqlMock.ExpectExec(`UPDATE "buku" SET .* WHERE versi = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	sqlMock.ExpectQuery(`SELECT \* FROM "buku" WHERE id = \$1 .* FOR UPDATE`).
		WillReturnRows(bookRow("published"))
	sqlMock.ExpectRollback()

	_, err := svc.CancelBook(context.Background(), id)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
