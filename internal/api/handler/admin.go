package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sofia/artdex/internal/domain"
	"github.com/sofia/artdex/internal/repository"
	"github.com/sofia/artdex/internal/service"
)

// AdminHandler exposes index maintenance endpoints: backlog stats,
// on-demand embedding backfill, and QR artifact backfill.
type AdminHandler struct {
	embeddings *repository.EmbeddingRepository
	backfill   *service.Backfill
	qr         *service.QRService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	embeddings *repository.EmbeddingRepository,
	backfill *service.Backfill,
	qr *service.QRService,
) *AdminHandler {
	return &AdminHandler{
		embeddings: embeddings,
		backfill:   backfill,
		qr:         qr,
	}
}

// EmbeddingStats handles GET /api/v1/admin/embeddings/stats. It reports the
// remaining backlog per kind.
func (h *AdminHandler) EmbeddingStats(c *gin.Context) {
	ctx := c.Request.Context()
	missing := make(map[string]int64, 3)
	for _, kind := range domain.AllKinds() {
		count, err := h.embeddings.CountMissing(ctx, kind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count missing embeddings: " + err.Error()})
			return
		}
		missing[string(kind)] = count
	}
	c.JSON(http.StatusOK, gin.H{"missing": missing})
}

type backfillRequest struct {
	Kinds []string `json:"kinds"`
	Batch int      `json:"batch"`
	Limit int      `json:"limit"`
	IDs   []string `json:"ids"`
}

// RunBackfill handles POST /api/v1/admin/backfill. The run executes
// synchronously on the request context, so closing the request cancels it at
// the next window boundary.
func (h *AdminHandler) RunBackfill(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	var kinds []domain.EntityKind
	for _, s := range req.Kinds {
		kind, ok := domain.ParseKind(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown kind: " + s})
			return
		}
		kinds = append(kinds, kind)
	}

	stats, err := h.backfill.Run(c.Request.Context(), service.BackfillOptions{
		Kinds: kinds,
		Batch: req.Batch,
		Limit: req.Limit,
		IDs:   req.IDs,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Backfill failed: " + err.Error()})
		return
	}

	perKind := make(map[string]gin.H, len(stats.PerKind))
	for kind, ks := range stats.PerKind {
		perKind[string(kind)] = gin.H{
			"attempted": ks.Attempted,
			"completed": ks.Completed,
			"skipped":   ks.Skipped,
			"failed":    ks.Failed,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"per_kind":    perKind,
		"failed":      stats.Failed(),
		"duration_ms": stats.EndTime.Sub(stats.StartTime).Milliseconds(),
	})
}

type qrBackfillRequest struct {
	Mode  string   `json:"mode"`
	Limit int      `json:"limit"`
	IDs   []string `json:"ids"`
}

// RunQRBackfill handles POST /api/v1/admin/qr/backfill.
func (h *AdminHandler) RunQRBackfill(c *gin.Context) {
	var req qrBackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	mode := service.QRModeRegenerate
	if req.Mode != "" {
		var ok bool
		mode, ok = service.ParseQRMode(req.Mode)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown mode: " + req.Mode})
			return
		}
	}

	stats, err := h.qr.Backfill(c.Request.Context(), mode, req.Limit, req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "QR backfill failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scanned": stats.Scanned,
		"updated": stats.Updated,
		"failed":  stats.Failed,
	})
}
