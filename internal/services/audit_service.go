package services

import (
	"context"
	"errors"

	"github.com/sauravkrkushwaha/BoloSign/internal/db/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditService appends and queries the append-only action trail. Entries are
// never updated or deleted; per document they are totally ordered by creation
// time.
type AuditService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuditService(db *gorm.DB, logger *zap.Logger) *AuditService {
	return &AuditService{
		db:     db,
		logger: logger.With(zap.String("service", "audit_service")),
	}
}

// Append records one action against a documentId.
func (as *AuditService) Append(ctx context.Context, documentID string, action models.AuditAction, detail string) error {
	entry := &models.AuditEntry{
		DocumentID: documentID,
		Action:     action,
		Detail:     detail,
	}
	if err := as.db.WithContext(ctx).Create(entry).Error; err != nil {
		as.logger.Error("Failed to append audit entry",
			zap.String("document_id", documentID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// DocumentTrail returns the record for a documentId together with its audit
// entries, oldest first.
func (as *AuditService) DocumentTrail(ctx context.Context, documentID string) (*models.DocumentRecord, []models.AuditEntry, error) {
	var record models.DocumentRecord
	err := as.db.WithContext(ctx).First(&record, "document_id = ?", documentID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	var entries []models.AuditEntry
	if err := as.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entries, nil
	}
	return &record, entries, nil
}
