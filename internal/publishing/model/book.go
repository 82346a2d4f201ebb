package model

import (
	"time"

	"github.com/google/uuid"
)

// Book is the production record created when a manuscript is approved.
type Book struct {
	BaseModel
	ManuscriptID    uuid.UUID  `gorm:"type:char(36);column:naskah_id;not null;uniqueIndex" json:"naskah_id"`
	PublisherID     uuid.UUID  `gorm:"type:char(36);column:penerbit_id;not null;index" json:"penerbit_id"`
	PICID           uuid.UUID  `gorm:"type:char(36);column:pic_id;not null;index" json:"pic_id"`
	ApprovedAt      time.Time  `gorm:"column:tanggal_persetujuan;not null" json:"tanggal_persetujuan"`
	TargetPrintDate time.Time  `gorm:"column:tanggal_target_naik_cetak;not null" json:"tanggal_target_naik_cetak"`
	ActualPrintDate *time.Time `gorm:"column:tanggal_realisasi_cetak" json:"tanggal_realisasi_cetak,omitempty"`
	Status          BookStatus `gorm:"type:varchar(20);column:status_keseluruhan;not null;index" json:"status_keseluruhan"`
	Version         int64      `gorm:"column:versi;not null;default:1" json:"versi"`
	Title           string     `gorm:"-" json:"judul,omitempty"`
}

func (b *Book) TableName() string {
	return "buku"
}

// BookFilter is used when listing books.
type BookFilter struct {
	Status      *BookStatus    `json:"status_keseluruhan,omitempty"`
	PublisherID *uuid.UUID     `json:"penerbit_id,omitempty"`
	PICID       *uuid.UUID     `json:"pic_id,omitempty"`
	Deadline    *DeadlineClass `json:"deadline,omitempty"`
	Offset      *int           `json:"offset,omitempty"`
	Limit       *int           `json:"limit,omitempty"`
}

// BookView is a book as presented to readers: derived status and deadline urgency included.
type BookView struct {
	Book
	DaysUntilTarget int           `json:"sisa_hari"`
	DeadlineClass   DeadlineClass `json:"kategori_deadline"`
}

// BookListResult represents the result of querying books with pagination
type BookListResult struct {
	TotalCount int64      `json:"total_count"`
	Books      []BookView `json:"items"`
	Offset     int        `json:"offset"`
	Limit      int        `json:"limit"`
}

// PipelineView is a book together with its production tasks in snapshot order.
type PipelineView struct {
	BookView
	Tasks []TaskProgressView `json:"tugas"`
}

// RecordPrintDateDTO carries the actual print date of a book.
type RecordPrintDateDTO struct {
	Date string `json:"tanggal_realisasi_cetak"`
}
