package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taxbasehub/fiscal-audit/dto"
)

// PipelineRunner triggers one reconciliation batch.
type PipelineRunner interface {
	Run(ctx context.Context) (*dto.RunSummary, error)
}

// LedgerAdmin is the manual-correction surface over the ledger.
type LedgerAdmin interface {
	ListUnidentified(ctx context.Context, limit int) ([]dto.UnidentifiedRecord, error)
	UpdateAllocation(ctx context.Context, fileID, processingTimestamp, taxID, category string) error
	Discard(ctx context.Context, fileID, processingTimestamp, fileName string) error
}

type AuditHandler struct {
	pipeline PipelineRunner
	ledger   LedgerAdmin
}

func NewAuditHandler(pipeline PipelineRunner, ledger LedgerAdmin) *AuditHandler {
	return &AuditHandler{pipeline: pipeline, ledger: ledger}
}

// RunAudit executes one batch synchronously and returns the summary.
// A fatal setup failure (unreadable registry) is a 500.
func (h *AuditHandler) RunAudit(c *gin.Context) {
	summary, err := h.pipeline.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AuditHandler) ListUnidentified(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.ledger.ListUnidentified(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (h *AuditHandler) AllocateFile(c *gin.Context) {
	var req dto.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	err := h.ledger.UpdateAllocation(c.Request.Context(), req.FileID, req.ProcessingTimestamp, req.TaxID, req.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "allocated"})
}

func (h *AuditHandler) DiscardFile(c *gin.Context) {
	var req dto.DiscardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	err := h.ledger.Discard(c.Request.Context(), req.FileID, req.ProcessingTimestamp, req.FileName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "discarded"})
}
