package models

import (
	"time"

	"gorm.io/gorm"
)

// DocumentRecord tracks one logical document under management: where its
// immutable original lives, the tamper-evidence hash pair, and the most
// recent signed output. Re-signing overwrites SignedHash and OutputPath; the
// audit trail is the only history kept.
type DocumentRecord struct {
	gorm.Model
	DocumentID   string `gorm:"uniqueIndex;not null"`
	SourcePath   string `gorm:"not null"`
	OriginalHash string
	SignedHash   string
	OutputPath   string
	SignedAt     time.Time
}
