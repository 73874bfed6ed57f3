package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-identify/internal/models"
)

const (
	defaultScanListLimit = 50
	maxScanListLimit     = 500
)

// ScanHistory persists identification outcomes so unverified scans can be
// reviewed and corrected later.
type ScanHistory struct {
	db     *gorm.DB
	images *ScanImageStore // optional
	logger *zap.Logger
}

func NewScanHistory(db *gorm.DB, images *ScanImageStore, logger *zap.Logger) *ScanHistory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanHistory{db: db, images: images, logger: logger.Named("scans")}
}

// Record stores result under a fresh ID. The photo is kept only when the
// card did not verify, since that is when someone has to look at it.
func (h *ScanHistory) Record(ctx context.Context, result *models.IdentifyResult, image []byte) (*models.ScanRecord, error) {
	rec := models.NewScanRecord(uuid.NewString(), result)
	if h.images != nil && !rec.Verified && len(image) > 0 {
		filename, err := h.images.Save(image)
		if err != nil {
			h.logger.Warn("Failed to keep scan image", zap.String("id", rec.ID), zap.Error(err))
		} else {
			rec.ImageFile = filename
		}
	}

	if err := h.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if rec.ImageFile != "" {
			if rmErr := h.images.Remove(rec.ImageFile); rmErr != nil {
				h.logger.Warn("Failed to remove orphaned scan image", zap.String("file", rec.ImageFile), zap.Error(rmErr))
			}
		}
		return nil, fmt.Errorf("failed to save scan: %w", err)
	}
	return &rec, nil
}

// List returns recent scans, newest first. A nil verified lists all.
func (h *ScanHistory) List(ctx context.Context, verified *bool, limit int) ([]models.ScanRecord, error) {
	if limit <= 0 {
		limit = defaultScanListLimit
	}
	if limit > maxScanListLimit {
		limit = maxScanListLimit
	}

	query := h.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if verified != nil {
		query = query.Where("verified = ?", *verified)
	}

	var scans []models.ScanRecord
	if err := query.Find(&scans).Error; err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, nil
}

func (h *ScanHistory) Get(ctx context.Context, id string) (*models.ScanRecord, error) {
	var rec models.ScanRecord
	if err := h.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return &rec, nil
}

// ImagePath returns the stored photo for a scan
func (h *ScanHistory) ImagePath(ctx context.Context, id string) (string, error) {
	rec, err := h.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if h.images == nil || rec.ImageFile == "" {
		return "", ErrScanImageNotFound
	}
	return h.images.Path(rec.ImageFile)
}

// Correct overwrites the resolved identity with a human-chosen card and
// marks the scan verified.
func (h *ScanHistory) Correct(ctx context.Context, id string, req models.CorrectScanRequest) (*models.ScanRecord, error) {
	rec, err := h.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rec.CardID = req.CardID
	rec.Name = req.Name
	if req.SetCode != "" {
		rec.SetCode = req.SetCode
	}
	rec.Verified = true
	rec.LowConfidence = false
	rec.ManuallyCorrect = true

	if err := h.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to update scan: %w", err)
	}

	h.logger.Info("Scan corrected",
		zap.String("id", id),
		zap.String("card_id", req.CardID))
	return rec, nil
}
