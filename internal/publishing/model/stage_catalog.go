package model

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// StageCatalog is an immutable, versioned snapshot of the ordered production stages.
// Tasks are held in an arena indexed by the order array, so a snapshot can be shared
// between goroutines without copying.
type StageCatalog struct {
	version int64
	tasks   []MasterTask
	order   []int
	index   map[uuid.UUID]int
}

// NewStageCatalog builds a snapshot from tasks in any order; they are ordered by urutan then id.
func NewStageCatalog(version int64, tasks []MasterTask) *StageCatalog {
	arena := make([]MasterTask, len(tasks))
	copy(arena, tasks)

	order := make([]int, len(arena))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool {
		a, b := order[x], order[y]
		if arena[a].Order != arena[b].Order {
			return arena[a].Order < arena[b].Order
		}
		return arena[a].ID.String() < arena[b].ID.String()
	})

	index := make(map[uuid.UUID]int, len(arena))
	for _, i := range order {
		index[arena[i].ID] = i
	}
	return &StageCatalog{version: version, tasks: arena, order: order, index: index}
}

func (c *StageCatalog) Version() int64 { return c.version }

func (c *StageCatalog) Len() int { return len(c.order) }

// Tasks returns a copy of the stages in catalog order.
func (c *StageCatalog) Tasks() []MasterTask {
	out := make([]MasterTask, 0, len(c.order))
	for _, i := range c.order {
		out = append(out, c.tasks[i])
	}
	return out
}

// Get returns the stage with the given id.
func (c *StageCatalog) Get(id uuid.UUID) (MasterTask, bool) {
	i, ok := c.index[id]
	if !ok {
		return MasterTask{}, false
	}
	return c.tasks[i], true
}

// Position returns the 0-based catalog position of a stage, or -1.
func (c *StageCatalog) Position(id uuid.UUID) int {
	for pos, i := range c.order {
		if c.tasks[i].ID == id {
			return pos
		}
	}
	return -1
}

// ApplyReorder validates that newOrder is a permutation of every stage id and returns
// the stages renumbered 1..N in that order. The snapshot itself is not modified.
func (c *StageCatalog) ApplyReorder(newOrder []uuid.UUID) ([]MasterTask, error) {
	if len(newOrder) != len(c.order) {
		return nil, NewValidationError("urutan", fmt.Sprintf("must list all %d stages, got %d", len(c.order), len(newOrder)))
	}
	seen := make(map[uuid.UUID]bool, len(newOrder))
	out := make([]MasterTask, 0, len(newOrder))
	for pos, id := range newOrder {
		if seen[id] {
			return nil, NewValidationError("urutan", fmt.Sprintf("stage %s listed twice", id))
		}
		seen[id] = true
		i, ok := c.index[id]
		if !ok {
			return nil, NewValidationError("urutan", fmt.Sprintf("unknown stage %s", id))
		}
		task := c.tasks[i]
		task.Order = pos + 1
		out = append(out, task)
	}
	return out, nil
}

// CatalogView is the wire form of a StageCatalog.
type CatalogView struct {
	Version int64        `json:"versi"`
	Stages  []MasterTask `json:"tahap"`
}

func (c *StageCatalog) View() CatalogView {
	return CatalogView{Version: c.version, Stages: c.Tasks()}
}

func (c *StageCatalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.View())
}
