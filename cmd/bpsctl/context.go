package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/config"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/database"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/exports"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/service"
)

// commandContext opens the database and wires the publishing manager on first use.
type commandContext struct {
	once    sync.Once
	cfg     *config.Config
	db      *gorm.DB
	manager *publishing.Manager
	err     error

	// open is replaced in tests
	open func(ctx context.Context) (*config.Config, *gorm.DB, error)
}

func newCommandContext() *commandContext {
	return &commandContext{open: openFromEnv}
}

func openFromEnv(ctx context.Context) (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadForCLI()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func (c *commandContext) ensureManager(ctx context.Context) (*publishing.Manager, error) {
	c.once.Do(func() {
		cfg, db, err := c.open(ctx)
		if err != nil {
			c.err = err
			return
		}
		if err := publishing.Migrate(ctx, db); err != nil {
			c.err = err
			return
		}
		c.cfg = cfg
		c.db = db
		calendar := service.NewCalendar(time.Now, cfg.Report.Location())
		c.manager = publishing.NewManager(db, calendar, nil)
	})
	return c.manager, c.err
}

// exportService builds export storage on demand; only `report --export` needs it.
func (c *commandContext) exportService(ctx context.Context) (*exports.ExportService, error) {
	if c.cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	storage, err := exports.NewStorageFromConfig(ctx, c.cfg.Export)
	if err != nil {
		return nil, err
	}
	return exports.NewExportService(storage), nil
}

func (c *commandContext) close() error {
	if c.db == nil {
		return nil
	}
	return database.Close(c.db)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
