package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/exports"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

// ErrExportDisabled is returned by Export when no export storage is configured.
var ErrExportDisabled = errors.New("report export is not configured")

// ReportExporter writes a JSON document somewhere it can be downloaded from.
type ReportExporter interface {
	ExportJSON(ctx context.Context, label string, v any) (*exports.ExportedFile, error)
}

// ReportService reads one consistent snapshot and hands it to the aggregators.
type ReportService struct {
	db       *gorm.DB
	catalog  *CatalogService
	calendar Calendar
	exporter ReportExporter
}

// NewReportService creates a ReportService. exporter may be nil, which disables Export.
func NewReportService(db *gorm.DB, catalog *CatalogService, calendar Calendar, exporter ReportExporter) *ReportService {
	return &ReportService{db: db, catalog: catalog, calendar: calendar, exporter: exporter}
}

// Build assembles the dashboard report.
func (s *ReportService) Build(ctx context.Context) (*model.Report, error) {
	var in ReportInput
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		in, err = s.loadInputInTx(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := BuildReport(in, s.calendar.Now(), s.calendar.Location)
	slog.DebugContext(ctx, "report built",
		"books", len(in.Books),
		"task_rows", len(in.Progress),
		"team", len(in.Team),
	)
	return &report, nil
}

// Export builds the report and writes it to export storage.
func (s *ReportService) Export(ctx context.Context) (*model.ExportResult, error) {
	if s.exporter == nil {
		return nil, ErrExportDisabled
	}
	report, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}

	file, err := s.exporter.ExportJSON(ctx, "laporan-"+report.Today, report)
	if err != nil {
		return nil, fmt.Errorf("failed to export report: %w", err)
	}
	slog.InfoContext(ctx, "report exported", "key", file.Key, "size_bytes", file.SizeBytes)
	return &model.ExportResult{Key: file.Key, URL: file.URL, SizeBytes: file.SizeBytes}, nil
}

func (s *ReportService) loadInputInTx(ctx context.Context, tx *gorm.DB) (ReportInput, error) {
	var in ReportInput

	if err := tx.WithContext(ctx).Order("created_at ASC").Find(&in.Books).Error; err != nil {
		return in, fmt.Errorf("failed to retrieve books: %w", err)
	}
	if err := tx.WithContext(ctx).Order("buku_id ASC, urutan ASC").Find(&in.Progress).Error; err != nil {
		return in, fmt.Errorf("failed to retrieve task progress: %w", err)
	}
	catalog, err := s.catalog.SnapshotInTx(ctx, tx)
	if err != nil {
		return in, err
	}
	in.Catalog = catalog

	var users []model.User
	if err := tx.WithContext(ctx).Find(&users).Error; err != nil {
		return in, fmt.Errorf("failed to retrieve users: %w", err)
	}
	in.Team = teamMembers(users, in.Progress)
	return in, nil
}

// teamMembers keeps production staff (PICs and editors) plus anyone currently
// assigned as a PIC, whatever their role.
func teamMembers(users []model.User, progress []model.TaskProgress) []model.User {
	assigned := make(map[uuid.UUID]bool)
	for _, row := range progress {
		if row.PICID != nil {
			assigned[*row.PICID] = true
		}
	}

	team := make([]model.User, 0, len(users))
	for _, u := range users {
		if assigned[u.ID] || hasRole(u.Roles, auth.RolePIC, auth.RoleEditor) {
			team = append(team, u)
		}
	}
	return team
}

func hasRole(roles []string, want ...string) bool {
	for _, r := range roles {
		for _, w := range want {
			if auth.NormaliseRole(r) == w {
				return true
			}
		}
	}
	return false
}
