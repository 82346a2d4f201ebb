package model

import (
	"strings"

	"github.com/google/uuid"
)

// CommandKind tags the variants of Command.
type CommandKind string

const (
	CommandSubmit  CommandKind = "submit"
	CommandApprove CommandKind = "approve"
	CommandReject  CommandKind = "reject"
	CommandAdvance CommandKind = "advance"
	CommandReorder CommandKind = "reorder"
)

// Command is a state-changing request. Validate checks the payload only and runs
// before any state is read or written.
type Command interface {
	Kind() CommandKind
	Validate() error
}

type SubmitCommand struct {
	ManuscriptID uuid.UUID `json:"-"`
}

func (SubmitCommand) Kind() CommandKind { return CommandSubmit }

func (c SubmitCommand) Validate() error {
	if c.ManuscriptID == uuid.Nil {
		return NewValidationError("naskah_id", "is required")
	}
	return nil
}

type ApproveCommand struct {
	ManuscriptID    uuid.UUID `json:"-"`
	PublisherID     uuid.UUID `json:"penerbit_id"`
	PICID           uuid.UUID `json:"pic_id"`
	TargetPrintDate string    `json:"tanggal_target_naik_cetak"`
	Note            string    `json:"catatan,omitempty"`
}

func (ApproveCommand) Kind() CommandKind { return CommandApprove }

func (c ApproveCommand) Validate() error {
	if c.ManuscriptID == uuid.Nil {
		return NewValidationError("naskah_id", "is required")
	}
	if c.PublisherID == uuid.Nil {
		return NewValidationError("penerbit_id", "is required")
	}
	if c.PICID == uuid.Nil {
		return NewValidationError("pic_id", "is required")
	}
	_, err := ParseDate("tanggal_target_naik_cetak", c.TargetPrintDate)
	return err
}

type RejectCommand struct {
	ManuscriptID uuid.UUID `json:"-"`
	Reason       string    `json:"alasan"`
}

func (RejectCommand) Kind() CommandKind { return CommandReject }

func (c RejectCommand) Validate() error {
	if c.ManuscriptID == uuid.Nil {
		return NewValidationError("naskah_id", "is required")
	}
	if strings.TrimSpace(c.Reason) == "" {
		return NewValidationError("alasan", "is required")
	}
	return nil
}

type AdvanceCommand struct {
	TaskProgressID uuid.UUID `json:"-"`
	Status         string    `json:"status"`
	Percentage     *int      `json:"persentase,omitempty"`
}

func (AdvanceCommand) Kind() CommandKind { return CommandAdvance }

func (c AdvanceCommand) Validate() error {
	if c.TaskProgressID == uuid.Nil {
		return NewValidationError("progres_tugas_id", "is required")
	}
	if _, err := ParseTaskStatus(c.Status); err != nil {
		return err
	}
	if c.Percentage != nil && (*c.Percentage < 0 || *c.Percentage > 100) {
		return NewValidationError("persentase", "must be between 0 and 100")
	}
	return nil
}

// TargetStatus returns the requested status. Only valid after Validate succeeded.
func (c AdvanceCommand) TargetStatus() TaskStatus {
	s, _ := ParseTaskStatus(c.Status)
	return s
}

type ReorderCommand struct {
	ExpectedVersion *int64      `json:"versi,omitempty"`
	Order           []uuid.UUID `json:"urutan"`
}

func (ReorderCommand) Kind() CommandKind { return CommandReorder }

func (c ReorderCommand) Validate() error {
	if len(c.Order) == 0 {
		return NewValidationError("urutan", "is required")
	}
	return nil
}
