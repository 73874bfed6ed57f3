package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/models"
	"github.com/codyseavey/tcg-identify/internal/services"
)

const (
	maxImageBytes = 10 << 20
	maxBatchCards = 200
)

// Identifier is the identification pipeline (services.IdentificationService)
type Identifier interface {
	IdentifyCard(ctx context.Context, image []byte) (*models.IdentifyResult, error)
	VerifyGuess(ctx context.Context, guess models.CardGuess) (*models.IdentifyResult, error)
}

// ScanRecorder stores identification outcomes
type ScanRecorder interface {
	Record(ctx context.Context, result *models.IdentifyResult, image []byte) (*models.ScanRecord, error)
}

type MetadataLookup interface {
	BatchLookup(ctx context.Context, refs []models.CardRef) []*models.Candidate
}

type CardHandler struct {
	identifier Identifier
	scans      ScanRecorder
	metadata   MetadataLookup
	logger     *zap.Logger
}

// NewCardHandler wires the card endpoints. scans may be nil to skip history.
func NewCardHandler(identifier Identifier, scans ScanRecorder, metadata MetadataLookup, logger *zap.Logger) *CardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CardHandler{
		identifier: identifier,
		scans:      scans,
		metadata:   metadata,
		logger:     logger,
	}
}

type identifyResponse struct {
	*models.IdentifyResult
	ScanID string `json:"scan_id,omitempty"`
}

// IdentifyCard identifies a card photo sent as a multipart "image" file or
// as JSON {"image_base64": "..."}.
func (h *CardHandler) IdentifyCard(c *gin.Context) {
	imageBytes, ok := readImage(c)
	if !ok {
		return
	}

	result, err := h.identifier.IdentifyCard(c.Request.Context(), imageBytes)
	if err != nil {
		writeIdentifyError(c, err)
		return
	}

	resp := identifyResponse{IdentifyResult: result}
	if h.scans != nil {
		// History is best effort; the identification already succeeded
		if rec, err := h.scans.Record(c.Request.Context(), result, imageBytes); err != nil {
			h.logger.Warn("Failed to record scan", zap.Error(err))
		} else {
			resp.ScanID = rec.ID
		}
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyCard runs a hand-entered guess through resolution and verification
func (h *CardHandler) VerifyCard(c *gin.Context) {
	var guess models.CardGuess
	if err := c.ShouldBindJSON(&guess); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	guess.Game = models.ParseGame(string(guess.Game))

	result, err := h.identifier.VerifyGuess(c.Request.Context(), guess)
	if err != nil {
		writeIdentifyError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type batchCardsRequest struct {
	Cards []models.CardRef `json:"cards" binding:"required,dive"`
}

// BatchMetadata returns catalog details for a list of cards; unknown cards come back null
func (h *CardHandler) BatchMetadata(c *gin.Context) {
	var req batchCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Cards) > maxBatchCards {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many cards (max 200)"})
		return
	}

	cards := h.metadata.BatchLookup(c.Request.Context(), req.Cards)
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

func readImage(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes)

	if file, err := c.FormFile("image"); err == nil {
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
			return nil, false
		}
		defer src.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(src); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return nil, false
		}
		if buf.Len() == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Uploaded file is empty"})
			return nil, false
		}
		return buf.Bytes(), true
	}

	var req struct {
		ImageBase64 string `json:"image_base64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ImageBase64) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "No image provided",
			"message": "Upload an image file or provide base64 encoded image in JSON body",
		})
		return nil, false
	}

	// Data URLs from browsers carry a "data:image/jpeg;base64," prefix
	encoded := req.ImageBase64
	if _, after, found := strings.Cut(encoded, ";base64,"); found {
		encoded = after
	}
	imageBytes, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil || len(imageBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid base64 image data"})
		return nil, false
	}
	return imageBytes, true
}

func writeIdentifyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOracleDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Card identification is not available",
			"message": "Gemini API key not configured",
		})
	case errors.Is(err, services.ErrCouldNotIdentify):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   services.ErrCouldNotIdentify.Error(),
			"message": err.Error(),
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "identification timed out"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
