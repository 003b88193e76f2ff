package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sauravkrkushwaha/BoloSign/internal/db/models"
	"github.com/sauravkrkushwaha/BoloSign/internal/fields"
	"github.com/sauravkrkushwaha/BoloSign/internal/geometry"
	"github.com/sauravkrkushwaha/BoloSign/internal/integrity"
	"github.com/sauravkrkushwaha/BoloSign/internal/services"
	"github.com/sauravkrkushwaha/BoloSign/internal/storage"
	"github.com/sauravkrkushwaha/BoloSign/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DocumentHandler struct {
	signingService *services.SigningService
	auditService   *services.AuditService
	store          *storage.Store
	db             *gorm.DB
	logger         *zap.Logger
	metrics        *metrics.Collector
	maxUploadBytes int64
}

func NewDocumentHandler(
	signingService *services.SigningService,
	auditService *services.AuditService,
	store *storage.Store,
	db *gorm.DB,
	logger *zap.Logger,
	collector *metrics.Collector,
	maxUploadBytes int64,
) *DocumentHandler {
	return &DocumentHandler{
		signingService: signingService,
		auditService:   auditService,
		store:          store,
		db:             db,
		logger:         logger.With(zap.String("handler", "document")),
		metrics:        collector,
		maxUploadBytes: maxUploadBytes,
	}
}

type signFieldRequest struct {
	ID        string   `json:"id"`
	Page      *int     `json:"page"`
	Type      string   `json:"type"`
	XPct      *float64 `json:"xPct"`
	YPct      *float64 `json:"yPct"`
	WidthPct  *float64 `json:"widthPct"`
	HeightPct *float64 `json:"heightPct"`
	Value     string   `json:"value"`
}

type signRequest struct {
	DocumentID       string             `json:"documentId"`
	SignaturePayload string             `json:"signaturePayload"`
	Fields           []signFieldRequest `json:"fields"`
}

// SignPDF applies a set of field placements to a document and returns the
// tamper-evidence hash pair plus a reference to the signed output.
func (h *DocumentHandler) SignPDF(c *gin.Context) {
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invalid request body",
			"category": services.CategoryValidation,
		})
		return
	}

	fieldSet, err := h.parseFields(req.Fields)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    err.Error(),
			"category": services.CategoryValidation,
		})
		return
	}

	payload, err := decodeSignaturePayload(req.SignaturePayload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "signaturePayload is not valid base64",
			"category": services.CategoryValidation,
		})
		return
	}

	result, err := h.signingService.Sign(c.Request.Context(), services.SignRequest{
		DocumentID: req.DocumentID,
		Payload:    payload,
		Fields:     fieldSet,
	})
	if err != nil {
		h.writeOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documentId":      result.DocumentID,
		"originalHash":    result.OriginalHash,
		"signedHash":      result.SignedHash,
		"outputReference": result.OutputPath,
		"url":             "/uploads/" + filepath.Base(result.OutputPath),
	})
}

// GetAudit returns the document record and its full audit trail, oldest entry
// first.
func (h *DocumentHandler) GetAudit(c *gin.Context) {
	documentID := c.Param("documentId")
	if documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentId is required"})
		return
	}

	record, entries, err := h.auditService.DocumentTrail(c.Request.Context(), documentID)
	if err != nil {
		h.logger.Error("Audit query failed", zap.String("document_id", documentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query audit trail"})
		return
	}

	trail := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		var detail interface{}
		if err := json.Unmarshal([]byte(e.Detail), &detail); err != nil {
			detail = e.Detail
		}
		trail = append(trail, gin.H{
			"action":    e.Action,
			"detail":    detail,
			"createdAt": e.CreatedAt.Format(time.RFC3339),
		})
	}

	resp := gin.H{
		"documentId": documentID,
		"entries":    trail,
	}
	if record != nil {
		resp["originalHash"] = record.OriginalHash
		resp["signedHash"] = record.SignedHash
		resp["outputReference"] = record.OutputPath
	}
	c.JSON(http.StatusOK, resp)
}

// UploadPDF stores an original document, records its hash and appends an
// uploaded audit entry. The documentId may be supplied as a form value; a
// fresh one is generated otherwise.
func (h *DocumentHandler) UploadPDF(c *gin.Context) {
	fileHeader, err := c.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A pdf file is required"})
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the upload limit"})
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are accepted"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the upload limit"})
		return
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is not a PDF"})
		return
	}

	documentID := c.PostForm("documentId")
	if documentID == "" {
		documentID = uuid.New().String()
	}

	path := h.store.OriginalPath(documentID)
	if err := h.store.Write(path, data); err != nil {
		h.logger.Error("Failed to store upload", zap.String("document_id", documentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}
	originalHash := integrity.Digest(data)

	detail, _ := json.Marshal(map[string]interface{}{
		"filename": fileHeader.Filename,
		"size":     len(data),
	})
	// The record and its uploaded audit entry commit together.
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var record models.DocumentRecord
		err := tx.First(&record, "document_id = ?", documentID).Error
		switch {
		case err == nil:
			record.SourcePath = path
			record.OriginalHash = originalHash
			err = tx.Save(&record).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = models.DocumentRecord{
				DocumentID:   documentID,
				SourcePath:   path,
				OriginalHash: originalHash,
			}
			err = tx.Create(&record).Error
		}
		if err != nil {
			return err
		}
		return tx.Create(&models.AuditEntry{
			DocumentID: documentID,
			Action:     models.ActionUploaded,
			Detail:     string(detail),
		}).Error
	})
	if err != nil {
		h.logger.Error("Failed to persist document record", zap.String("document_id", documentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist document record"})
		return
	}

	h.metrics.DocumentUploaded()
	h.logger.Info("Document uploaded",
		zap.String("document_id", documentID),
		zap.String("filename", fileHeader.Filename),
		zap.Int("size", len(data)),
	)
	c.JSON(http.StatusOK, gin.H{
		"documentId":   documentID,
		"originalHash": originalHash,
		"url":          "/uploads/" + filepath.Base(path),
	})
}

func (h *DocumentHandler) parseFields(in []signFieldRequest) ([]fields.Field, error) {
	out := make([]fields.Field, 0, len(in))
	for i, f := range in {
		if f.Page == nil {
			return nil, fmt.Errorf("field %d is missing its page index", i)
		}
		if f.XPct == nil || f.YPct == nil || f.WidthPct == nil || f.HeightPct == nil {
			return nil, fmt.Errorf("field %d is missing xPct, yPct, widthPct or heightPct", i)
		}
		id := f.ID
		if id == "" {
			id = uuid.New().String()
		}
		out = append(out, fields.Field{
			ID:   id,
			Type: fields.Type(f.Type),
			Page: *f.Page,
			Rect: geometry.FracRect{
				XPct:      *f.XPct,
				YPct:      *f.YPct,
				WidthPct:  *f.WidthPct,
				HeightPct: *f.HeightPct,
			},
			Value: f.Value,
		})
	}
	return out, nil
}

func (h *DocumentHandler) writeOperationError(c *gin.Context, err error) {
	var opErr *services.OperationError
	if !errors.As(err, &opErr) {
		h.logger.Error("Signing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Signing failed"})
		return
	}
	status := http.StatusInternalServerError
	switch opErr.Category {
	case services.CategoryValidation:
		status = http.StatusBadRequest
	case services.CategoryEncoding:
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{
		"error":    opErr.Message,
		"category": opErr.Category,
	})
}

// decodeSignaturePayload accepts raw base64 or a data URL and returns the
// raster bytes. An empty payload is valid; signature fields are then skipped
// as soft failures.
func decodeSignaturePayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, nil
	}
	if idx := strings.Index(payload, ";base64,"); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(payload)
}
