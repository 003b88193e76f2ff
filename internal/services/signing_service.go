package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sauravkrkushwaha/BoloSign/internal/db/models"
	"github.com/sauravkrkushwaha/BoloSign/internal/fields"
	"github.com/sauravkrkushwaha/BoloSign/internal/geometry"
	"github.com/sauravkrkushwaha/BoloSign/internal/integrity"
	"github.com/sauravkrkushwaha/BoloSign/internal/pdf"
	"github.com/sauravkrkushwaha/BoloSign/internal/storage"
	"github.com/sauravkrkushwaha/BoloSign/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// signingState tracks a run through the pipeline. Only Persisted has an
// externally observable effect; a failure in any earlier state leaves the
// stored record and audit trail exactly as they were.
type signingState int

const (
	statePending signingState = iota
	stateHashing
	stateInjecting
	stateEncoding
	statePersisted
	stateFailed
)

func (s signingState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateHashing:
		return "hashing"
	case stateInjecting:
		return "injecting"
	case stateEncoding:
		return "encoding"
	case statePersisted:
		return "persisted"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// SignRequest is one signing submission after transport decoding. Payload is
// the decoded raster bytes for signature fields; Fields preserves submission
// order, which is the draw order.
type SignRequest struct {
	DocumentID string
	Payload    []byte
	Fields     []fields.Field
}

// SignResult is what a run that reached Persisted reports back.
type SignResult struct {
	DocumentID   string
	OriginalHash string
	SignedHash   string
	OutputPath   string
	FieldsDrawn  int
	FieldsSkipped int
}

// SigningService drives the signing pipeline over document records. Runs for
// the same documentId are serialized by a per-id mutex held from source read
// through persistence, so concurrent submissions cannot interleave their
// record updates or lose audit entries.
type SigningService struct {
	db       *gorm.DB
	store    *storage.Store
	resolver SourceResolver
	logger   *zap.Logger
	metrics  *metrics.Collector

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSigningService(db *gorm.DB, store *storage.Store, resolver SourceResolver, logger *zap.Logger, collector *metrics.Collector) *SigningService {
	return &SigningService{
		db:       db,
		store:    store,
		resolver: resolver,
		logger:   logger.With(zap.String("service", "signing_service")),
		metrics:  collector,
		locks:    make(map[string]*sync.Mutex),
	}
}

// documentLock returns the mutex serializing runs for one documentId. Locks
// are never evicted; the id space is small and bounded by real documents.
func (ss *SigningService) documentLock(documentID string) *sync.Mutex {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	l, ok := ss.locks[documentID]
	if !ok {
		l = &sync.Mutex{}
		ss.locks[documentID] = l
	}
	return l
}

// Sign runs the full pipeline for one request. Validation happens before any
// I/O; per-field problems (bad page index, missing or undecodable payload)
// are logged and skipped without failing the run.
func (ss *SigningService) Sign(ctx context.Context, req SignRequest) (*SignResult, error) {
	if err := ss.validate(req); err != nil {
		return nil, err
	}

	lock := ss.documentLock(req.DocumentID)
	lock.Lock()
	defer lock.Unlock()

	state := statePending
	start := time.Now()
	log := ss.logger.With(zap.String("document_id", req.DocumentID))
	fail := func(err *OperationError) (*SignResult, error) {
		log.Error("Signing failed",
			zap.String("state", state.String()),
			zap.String("category", string(err.Category)),
			zap.Error(err),
		)
		ss.metrics.DocumentSigned("failed")
		state = stateFailed
		return nil, err
	}

	record, err := ss.resolveRecord(req.DocumentID)
	if err != nil {
		return fail(resourceError("failed to resolve document source", err))
	}

	state = stateHashing
	source, err := ss.store.Read(record.SourcePath)
	if err != nil {
		return fail(resourceError("failed to read source document", err))
	}
	originalHash := integrity.Digest(source)

	if err := ctx.Err(); err != nil {
		return fail(resourceError("signing canceled", err))
	}

	state = stateInjecting
	doc, err := pdf.Load(source)
	if err != nil {
		return fail(encodingError("failed to parse source document", err))
	}
	updater := pdf.NewUpdater(doc)
	drawn, skipped := ss.injectFields(log, doc, updater, req)

	state = stateEncoding
	signed, err := updater.Bytes()
	if err != nil {
		return fail(encodingError("failed to encode signed document", err))
	}
	signedHash := integrity.Digest(signed)

	if err := ctx.Err(); err != nil {
		return fail(resourceError("signing canceled", err))
	}

	state = statePersisted
	outputPath := ss.store.SignedPath(req.DocumentID)
	if err := ss.store.Write(outputPath, signed); err != nil {
		return fail(resourceError("failed to write signed document", err))
	}

	record.OriginalHash = originalHash
	record.SignedHash = signedHash
	record.OutputPath = outputPath
	record.SignedAt = time.Now()

	detail, _ := json.Marshal(map[string]interface{}{
		"fieldCount": len(req.Fields),
		"drawn":      drawn,
		"skipped":    skipped,
		"outputPath": outputPath,
	})
	entry := &models.AuditEntry{
		DocumentID: req.DocumentID,
		Action:     models.ActionSigned,
		Detail:     string(detail),
	}
	// The record update and its signed audit entry commit together; if either
	// fails, the stored record stays exactly as it was before the run.
	err = ss.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(record).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return fail(resourceError("failed to persist signing result", err))
	}

	ss.metrics.DocumentSigned("success")
	ss.metrics.ObserveSignDuration(time.Since(start).Seconds())
	ss.metrics.ObserveDocumentSize(len(signed))
	log.Info("Document signed",
		zap.Int("fields_drawn", drawn),
		zap.Int("fields_skipped", skipped),
		zap.String("output", outputPath),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &SignResult{
		DocumentID:    req.DocumentID,
		OriginalHash:  originalHash,
		SignedHash:    signedHash,
		OutputPath:    outputPath,
		FieldsDrawn:   drawn,
		FieldsSkipped: skipped,
	}, nil
}

func (ss *SigningService) validate(req SignRequest) error {
	if req.DocumentID == "" {
		return validationError("documentId is required")
	}
	if len(req.Fields) == 0 {
		return validationError("at least one field is required")
	}
	for i, f := range req.Fields {
		if !f.Type.Valid() {
			return validationError("field %d has unknown type %q", i, f.Type)
		}
		if f.Page < 0 {
			return validationError("field %d has negative page index", i)
		}
	}
	return nil
}

// resolveRecord finds the DocumentRecord or creates one bound to whatever
// source the resolver chooses for an unknown id.
func (ss *SigningService) resolveRecord(documentID string) (*models.DocumentRecord, error) {
	var record models.DocumentRecord
	err := ss.db.First(&record, "document_id = ?", documentID).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sourcePath, err := ss.resolver.Resolve(documentID)
	if err != nil {
		return nil, err
	}
	record = models.DocumentRecord{
		DocumentID: documentID,
		SourcePath: sourcePath,
	}
	if err := ss.db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// injectFields routes each field, in submission order, to the page updater.
// Every failure here is soft: the field is skipped and the run continues.
func (ss *SigningService) injectFields(log *zap.Logger, doc *pdf.Document, updater *pdf.Updater, req SignRequest) (drawn, skipped int) {
	for _, f := range req.Fields {
		if f.Page >= doc.PageCount() {
			log.Warn("Skipping field on out-of-range page",
				zap.String("field_id", f.ID),
				zap.Int("page", f.Page),
				zap.Int("page_count", doc.PageCount()),
			)
			ss.metrics.FieldSkipped("bad_page")
			skipped++
			continue
		}

		pg, err := doc.Page(f.Page)
		if err != nil {
			log.Warn("Skipping field on unreadable page", zap.String("field_id", f.ID), zap.Error(err))
			ss.metrics.FieldSkipped("bad_page")
			skipped++
			continue
		}
		w, h := pg.Size()
		pageSize := geometry.Size{Width: w, Height: h}

		// The rendered surface for injection is the page itself at 1:1, so
		// the fractional rect scales straight into points and the flip puts
		// it in bottom-left origin space.
		px := geometry.ToPixels(f.Rect, pageSize)
		rect := geometry.ToDocumentPoints(px, pageSize, pageSize)

		if err := ss.drawField(updater, f, rect, req.Payload); err != nil {
			log.Warn("Skipping undrawable field",
				zap.String("field_id", f.ID),
				zap.String("type", string(f.Type)),
				zap.Error(err),
			)
			ss.metrics.FieldSkipped("draw_failed")
			skipped++
			continue
		}
		drawn++
	}
	return drawn, skipped
}

func (ss *SigningService) drawField(updater *pdf.Updater, f fields.Field, rect geometry.PointRect, payload []byte) error {
	switch f.Type {
	case fields.TypeSignature:
		if len(payload) == 0 {
			return errors.New("no signature payload submitted")
		}
		return updater.DrawImage(f.Page, rect, payload)
	case fields.TypeText:
		return updater.DrawText(f.Page, rect, f.Value)
	case fields.TypeDate:
		return updater.DrawText(f.Page, rect, time.Now().Format("01/02/2006"))
	case fields.TypeChoice:
		return updater.DrawCheck(f.Page, rect, choiceChecked(f.Value))
	}
	return errors.New("unsupported field type")
}

func choiceChecked(value string) bool {
	switch value {
	case "", "false", "off", "0", "unchecked":
		return false
	}
	return true
}
