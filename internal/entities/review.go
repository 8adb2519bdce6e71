package entities

import (
	"fmt"
	"time"
)

type Review struct {
	ID        int64       `json:"id"`
	Rating    int         `json:"rating"`
	Comment   string      `json:"comment"`
	BookID    int64       `json:"bookId"`
	Author    UserSummary `json:"user"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func (r Review) Identity() int64 { return r.ID }

func (r Review) Validate() error {
	if r.ID == 0 {
		return fmt.Errorf("review: missing id")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("review %d: rating %d out of range", r.ID, r.Rating)
	}
	return nil
}

type ReviewInput struct {
	BookID  int64  `json:"bookId" validate:"required,gt=0"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}
