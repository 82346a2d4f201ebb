package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

// fixedNow is the pinned "current instant" of every service test.
var fixedNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db          *gorm.DB
	now         time.Time
	calendar    Calendar
	catalog     *CatalogService
	manuscripts *ManuscriptService
	pipeline    *PipelineService
	dispatcher  *Dispatcher

	author    *auth.Principal
	editor    *auth.Principal
	pic       *auth.Principal
	publisher model.Publisher
	picUser   model.User
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Publisher{},
		&model.Manuscript{},
		&model.Book{},
		&model.MasterTask{},
		&model.CatalogState{},
		&model.TaskProgress{},
	))
	require.NoError(t, NewCatalogService(db).EnsureState(context.Background()))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{db: db, now: fixedNow}
	f.calendar = NewCalendar(func() time.Time { return f.now }, time.UTC)

	tasks := NewTaskProgressStore()
	f.catalog = NewCatalogService(db)
	f.manuscripts = NewManuscriptService(db, f.catalog, tasks, f.calendar)
	f.pipeline = NewPipelineService(db, tasks, f.calendar)
	f.dispatcher = NewDispatcher(f.manuscripts, f.pipeline, f.catalog)

	authorUser := f.createUser(t, "Sari Penulis", "sari@example.com", auth.RoleAuthor)
	editorUser := f.createUser(t, "Budi Editor", "budi@example.com", auth.RoleEditor)
	f.picUser = f.createUser(t, "Rina PIC", "rina@example.com", auth.RolePIC)

	f.author = auth.NewPrincipal(authorUser.ID, authorUser.FullName, authorUser.Roles)
	f.editor = auth.NewPrincipal(editorUser.ID, editorUser.FullName, editorUser.Roles)
	f.pic = auth.NewPrincipal(f.picUser.ID, f.picUser.FullName, f.picUser.Roles)

	f.publisher = model.Publisher{Name: "Penerbit Nusantara"}
	require.NoError(t, db.Create(&f.publisher).Error)
	return f
}

func (f *fixture) createUser(t *testing.T, name, email string, roles ...string) model.User {
	t.Helper()
	u := model.User{FullName: name, Email: email, Roles: roles}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

// seedStages appends stages to the catalog; names prefixed with "review:" get the review phase.
func (f *fixture) seedStages(t *testing.T, names ...string) []model.MasterTask {
	t.Helper()
	ctx := context.Background()
	out := make([]model.MasterTask, 0, len(names))
	for _, name := range names {
		req := &model.CreateMasterTaskDTO{Name: name, Phase: string(model.StagePhaseEditing)}
		if rest, ok := strings.CutPrefix(name, "review:"); ok {
			req.Name = rest
			req.Phase = string(model.StagePhaseReview)
		}
		task, err := f.catalog.Add(ctx, req)
		require.NoError(t, err)
		out = append(out, *task)
	}
	return out
}

// submittedManuscript creates a manuscript by the fixture author and moves it to review.
func (f *fixture) submittedManuscript(t *testing.T, title string) *model.Manuscript {
	t.Helper()
	ctx := context.Background()
	m, err := f.manuscripts.Create(ctx, f.author, &model.CreateManuscriptDTO{
		Title:            title,
		Genre:            "Fiksi",
		TargetPublishers: []model.TargetPublisher{{PublisherID: f.publisher.ID, Priority: 1}},
	})
	require.NoError(t, err)
	m, err = f.manuscripts.Submit(ctx, f.author, model.SubmitCommand{ManuscriptID: m.ID})
	require.NoError(t, err)
	return m
}

func (f *fixture) approveCommand(manuscriptID uuid.UUID, target string) model.ApproveCommand {
	return model.ApproveCommand{
		ManuscriptID:    manuscriptID,
		PublisherID:     f.publisher.ID,
		PICID:           f.picUser.ID,
		TargetPrintDate: target,
	}
}

// approvedBook runs a manuscript through submit and approve and returns the result.
func (f *fixture) approvedBook(t *testing.T, title, target string) *model.ApprovalResult {
	t.Helper()
	m := f.submittedManuscript(t, title)
	result, err := f.manuscripts.Approve(context.Background(), f.editor, f.approveCommand(m.ID, target))
	require.NoError(t, err)
	return result
}

func intPtr(v int) *int { return &v }

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
