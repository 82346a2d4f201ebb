package publishing

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/service"
)

// Migrate creates or updates the publishing tables and the catalog version row.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&model.User{},
		&model.Publisher{},
		&model.Manuscript{},
		&model.Book{},
		&model.MasterTask{},
		&model.CatalogState{},
		&model.TaskProgress{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return service.NewCatalogService(db).EnsureState(ctx)
}
