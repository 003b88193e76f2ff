package models

import (
	"gorm.io/gorm"
)

// AuditAction enumerates the recorded actions.
type AuditAction string

const (
	ActionUploaded AuditAction = "uploaded"
	ActionSigned   AuditAction = "signed"
)

// AuditEntry is one immutable append-only record of an action against a
// document. Entries are never updated or deleted; CreatedAt orders them per
// document.
type AuditEntry struct {
	gorm.Model
	DocumentID string      `gorm:"index;not null"`
	Action     AuditAction `gorm:"not null"`
	// Detail is an action-specific JSON payload (field count, output path).
	Detail string `gorm:"type:json"`
}
