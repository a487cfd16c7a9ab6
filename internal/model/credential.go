package model

import "time"

// Credential is one key of the client's persisted credentials when the SQL
// backend is used.
type Credential struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}
