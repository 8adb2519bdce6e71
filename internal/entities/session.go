package entities

import "time"

// StoredSession is the single persisted row holding the encrypted bearer
// token. The client keeps at most one.
type StoredSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"type:text;not null" json:"-"` // base64 AES-256-GCM ciphertext
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StoredSession) TableName() string {
	return "stored_sessions"
}
