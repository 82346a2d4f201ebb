package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

// CatalogSeedFile is the YAML layout accepted by Seed.
type CatalogSeedFile struct {
	Stages []model.CreateMasterTaskDTO `yaml:"tahap"`
}

// CatalogService owns the stage catalog: one ordered sequence of MasterTasks guarded
// by the version counter in katalog_tahap.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// EnsureState creates the catalog version row if it does not exist yet.
func (s *CatalogService) EnsureState(ctx context.Context) error {
	state := model.CatalogState{ID: model.CatalogStateID}
	if err := s.db.WithContext(ctx).FirstOrCreate(&state, model.CatalogState{ID: model.CatalogStateID}).Error; err != nil {
		return fmt.Errorf("failed to initialise catalog state: %w", err)
	}
	return nil
}

// Snapshot returns the current catalog.
func (s *CatalogService) Snapshot(ctx context.Context) (*model.StageCatalog, error) {
	var catalog *model.StageCatalog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		catalog, err = s.SnapshotInTx(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// SnapshotInTx reads the catalog with the caller's transaction.
func (s *CatalogService) SnapshotInTx(ctx context.Context, tx *gorm.DB) (*model.StageCatalog, error) {
	version, err := s.versionInTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	var tasks []model.MasterTask
	if err := tx.WithContext(ctx).Order("urutan ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve master tasks: %w", err)
	}
	return model.NewStageCatalog(version, tasks), nil
}

// Add appends a stage at the end of the catalog.
func (s *CatalogService) Add(ctx context.Context, req *model.CreateMasterTaskDTO) (*model.MasterTask, error) {
	if req == nil {
		return nil, fmt.Errorf("create request cannot be nil")
	}
	task, err := newMasterTask(req)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog, err := s.SnapshotInTx(ctx, tx)
		if err != nil {
			return err
		}
		task.Order = catalog.Len() + 1
		if err := s.bumpVersionInTx(ctx, tx, catalog.Version()); err != nil {
			return err
		}
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("failed to create master task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("catalog stage added", "master_tugas_id", task.ID, "urutan", task.Order)
	return task, nil
}

// Update edits name, phase or description of a stage. Its position is unchanged.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateMasterTaskDTO) (*model.MasterTask, error) {
	if req == nil {
		return nil, fmt.Errorf("update request cannot be nil")
	}

	var task model.MasterTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version, err := s.versionInTx(ctx, tx)
		if err != nil {
			return err
		}
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.NotFoundError("master_tugas", id)
			}
			return fmt.Errorf("failed to retrieve master task: %w", err)
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return model.NewValidationError("nama_tugas", "cannot be empty")
			}
			task.Name = name
		}
		if req.Phase != nil {
			phase, err := model.ParseStagePhase(*req.Phase)
			if err != nil {
				return err
			}
			task.Phase = phase
		}
		if req.Description != nil {
			task.Description = *req.Description
		}

		if err := s.bumpVersionInTx(ctx, tx, version); err != nil {
			return err
		}
		if err := tx.Save(&task).Error; err != nil {
			return fmt.Errorf("failed to update master task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes a stage and renumbers the remaining ones contiguously. Pipelines of
// existing books keep their own copy of the stage.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog, err := s.SnapshotInTx(ctx, tx)
		if err != nil {
			return err
		}
		if _, ok := catalog.Get(id); !ok {
			return model.NotFoundError("master_tugas", id)
		}

		if err := s.bumpVersionInTx(ctx, tx, catalog.Version()); err != nil {
			return err
		}
		if err := tx.Delete(&model.MasterTask{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete master task: %w", err)
		}

		position := 1
		for _, task := range catalog.Tasks() {
			if task.ID == id {
				continue
			}
			if task.Order != position {
				if err := tx.Model(&model.MasterTask{}).Where("id = ?", task.ID).Update("urutan", position).Error; err != nil {
					return fmt.Errorf("failed to renumber master task %s: %w", task.ID, err)
				}
			}
			position++
		}

		slog.Info("catalog stage deleted", "master_tugas_id", id, "remaining", position-1)
		return nil
	})
}

// Reorder replaces the whole catalog order in one transaction. The new order must list
// every stage exactly once.
func (s *CatalogService) Reorder(ctx context.Context, cmd model.ReorderCommand) (*model.StageCatalog, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var result *model.StageCatalog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog, err := s.SnapshotInTx(ctx, tx)
		if err != nil {
			return err
		}
		if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != catalog.Version() {
			return model.ConcurrentModificationError("katalog_tahap", model.CatalogStateID)
		}

		reordered, err := catalog.ApplyReorder(cmd.Order)
		if err != nil {
			return err
		}

		if err := s.bumpVersionInTx(ctx, tx, catalog.Version()); err != nil {
			return err
		}
		for _, task := range reordered {
			if err := tx.Model(&model.MasterTask{}).Where("id = ?", task.ID).Update("urutan", task.Order).Error; err != nil {
				return fmt.Errorf("failed to reorder master task %s: %w", task.ID, err)
			}
		}

		result = model.NewStageCatalog(catalog.Version()+1, reordered)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("catalog reordered", "versi", result.Version(), "stages", result.Len())
	return result, nil
}

// Seed loads stages into an empty catalog. A non-empty catalog is left alone and
// zero is returned.
func (s *CatalogService) Seed(ctx context.Context, stages []model.CreateMasterTaskDTO) (int, error) {
	tasks := make([]*model.MasterTask, 0, len(stages))
	for i := range stages {
		task, err := newMasterTask(&stages[i])
		if err != nil {
			return 0, fmt.Errorf("invalid seed stage %d: %w", i+1, err)
		}
		task.Order = i + 1
		tasks = append(tasks, task)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	seeded := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog, err := s.SnapshotInTx(ctx, tx)
		if err != nil {
			return err
		}
		if catalog.Len() > 0 {
			return nil
		}
		if err := s.bumpVersionInTx(ctx, tx, catalog.Version()); err != nil {
			return err
		}
		if err := tx.Create(&tasks).Error; err != nil {
			return fmt.Errorf("failed to seed master tasks: %w", err)
		}
		seeded = len(tasks)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if seeded > 0 {
		slog.Info("catalog seeded", "stages", seeded)
	}
	return seeded, nil
}

// LoadCatalogSeedFile reads a YAML seed file of the form:
//
//	tahap:
//	  - nama_tugas: Review naskah
//	    fase: review
func LoadCatalogSeedFile(path string) ([]model.CreateMasterTaskDTO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog seed file: %w", err)
	}
	var seed CatalogSeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed file: %w", err)
	}
	return seed.Stages, nil
}

func (s *CatalogService) versionInTx(ctx context.Context, tx *gorm.DB) (int64, error) {
	var state model.CatalogState
	if err := tx.WithContext(ctx).First(&state, "id = ?", model.CatalogStateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("catalog state is not initialised: %w", err)
		}
		return 0, fmt.Errorf("failed to retrieve catalog state: %w", err)
	}
	return state.Version, nil
}

// bumpVersionInTx moves the catalog version from expected to expected+1, failing
// when another writer got there first.
func (s *CatalogService) bumpVersionInTx(ctx context.Context, tx *gorm.DB, expected int64) error {
	result := tx.WithContext(ctx).
		Model(&model.CatalogState{}).
		Where("id = ? AND versi = ?", model.CatalogStateID, expected).
		Update("versi", expected+1)
	if result.Error != nil {
		return fmt.Errorf("failed to update catalog version: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ConcurrentModificationError("katalog_tahap", model.CatalogStateID)
	}
	return nil
}

func newMasterTask(req *model.CreateMasterTaskDTO) (*model.MasterTask, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.NewValidationError("nama_tugas", "is required")
	}
	phase, err := model.ParseStagePhase(req.Phase)
	if err != nil {
		return nil, err
	}
	return &model.MasterTask{Name: name, Phase: phase, Description: req.Description}, nil
}
