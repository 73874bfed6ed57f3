package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-identify/internal/models"
	"github.com/codyseavey/tcg-identify/internal/services"
)

// ScanStore is the subset of services.ScanHistory the handlers use
type ScanStore interface {
	List(ctx context.Context, verified *bool, limit int) ([]models.ScanRecord, error)
	Get(ctx context.Context, id string) (*models.ScanRecord, error)
	Correct(ctx context.Context, id string, req models.CorrectScanRequest) (*models.ScanRecord, error)
	ImagePath(ctx context.Context, id string) (string, error)
}

type ScanHandler struct {
	scans ScanStore
}

func NewScanHandler(scans ScanStore) *ScanHandler {
	return &ScanHandler{scans: scans}
}

// ListScans returns recent scans, optionally filtered with ?verified=true|false
func (h *ScanHandler) ListScans(c *gin.Context) {
	var verified *bool
	if raw := c.Query("verified"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "verified must be true or false"})
			return
		}
		verified = &v
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	scans, err := h.scans.List(c.Request.Context(), verified, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, scans)
}

func (h *ScanHandler) GetScan(c *gin.Context) {
	scan, err := h.scans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeScanError(c, err)
		return
	}
	c.JSON(http.StatusOK, scan)
}

// GetScanImage serves the photo kept for an unverified scan
func (h *ScanHandler) GetScanImage(c *gin.Context) {
	path, err := h.scans.ImagePath(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeScanError(c, err)
		return
	}
	c.File(path)
}

// CorrectScan records the card a person picked for a scan
func (h *ScanHandler) CorrectScan(c *gin.Context) {
	var req models.CorrectScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scan, err := h.scans.Correct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeScanError(c, err)
		return
	}
	c.JSON(http.StatusOK, scan)
}

func writeScanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrScanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	case errors.Is(err, services.ErrScanImageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
