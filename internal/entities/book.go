package entities

import (
	"fmt"
	"time"
)

type ReadingStatus string

const (
	ReadingStatusNotRead ReadingStatus = "NOT_READ"
	ReadingStatusReading ReadingStatus = "READING"
	ReadingStatusRead    ReadingStatus = "READ"
)

func (s ReadingStatus) Valid() bool {
	switch s {
	case ReadingStatusNotRead, ReadingStatusReading, ReadingStatusRead:
		return true
	}
	return false
}

type Book struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	Author         string        `json:"author"`
	Year           int           `json:"year,omitempty"`
	Publisher      string        `json:"publisher,omitempty"`
	ISBN           string        `json:"isbn,omitempty"`
	Cover          *string       `json:"cover"`
	OwnerUsername  string        `json:"ownerUsername,omitempty"`
	ReadingStatus  ReadingStatus `json:"readingStatus,omitempty"`
	ExchangeStatus string        `json:"exchangeStatus,omitempty"`
	ReviewCount    int           `json:"reviewCount"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

func (b Book) Identity() int64 { return b.ID }

// HasCover reports whether the book carries a non-empty cover URL.
func (b Book) HasCover() bool {
	return b.Cover != nil && *b.Cover != ""
}

// Validate rejects payloads the server should never produce.
func (b Book) Validate() error {
	if b.ID == 0 {
		return fmt.Errorf("book: missing id")
	}
	if b.Title == "" {
		return fmt.Errorf("book %d: missing title", b.ID)
	}
	if b.ReadingStatus != "" && !b.ReadingStatus.Valid() {
		return fmt.Errorf("book %d: unknown reading status %q", b.ID, b.ReadingStatus)
	}
	return nil
}

// BookInput is the payload for creating or updating a book.
type BookInput struct {
	Title         string        `json:"title" validate:"required"`
	Author        string        `json:"author" validate:"required"`
	Year          int           `json:"year,omitempty" validate:"omitempty,gte=0,lte=9999"`
	Publisher     string        `json:"publisher,omitempty"`
	ISBN          string        `json:"isbn,omitempty"`
	Cover         string        `json:"cover,omitempty" validate:"omitempty,url"`
	ReadingStatus ReadingStatus `json:"readingStatus,omitempty" validate:"omitempty,oneof=NOT_READ READING READ"`
}

// StringPtr is a small helper for the nullable cover field.
func StringPtr(s string) *string {
	return &s
}
