package models

import (
	"time"
)

// ScanRecord stores the outcome of one identification so unverified scans
// can be listed and corrected by hand.
type ScanRecord struct {
	ID              string        `json:"id" gorm:"primaryKey"`
	Game            Game          `json:"game" gorm:"index"`
	GuessedName     string        `json:"guessed_name"`
	GuessedSetID    string        `json:"guessed_set_id"`
	GuessedNumber   string        `json:"guessed_number"`
	GuessedRarity   string        `json:"guessed_rarity"`
	Language        Language      `json:"language" gorm:"default:'en'"`
	Name            string        `json:"name"`
	CardID          string        `json:"card_id" gorm:"index"`
	SetCode         string        `json:"set_code"`
	Verified        bool          `json:"verified" gorm:"index"`
	LowConfidence   bool          `json:"low_confidence"`
	Strategy        MatchStrategy `json:"strategy"`
	Attempts        int           `json:"attempts" gorm:"default:1"`
	ManuallyCorrect bool          `json:"manually_corrected"`
	ImageFile       string        `json:"image_file,omitempty"` // kept for unverified scans only
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewScanRecord flattens an IdentifyResult into a ScanRecord.
// The guessed fields come from the last guess the oracle produced.
func NewScanRecord(id string, result *IdentifyResult) ScanRecord {
	guess := result.FirstGuess
	if result.RetryGuess != nil {
		guess = *result.RetryGuess
	}
	return ScanRecord{
		ID:            id,
		Game:          result.Identity.Game,
		GuessedName:   guess.Name,
		GuessedSetID:  guess.SetID,
		GuessedNumber: guess.CardNumber,
		GuessedRarity: guess.Rarity,
		Language:      guess.Language,
		Name:          result.Identity.Name,
		CardID:        result.Identity.CardID,
		SetCode:       result.Identity.SetCode,
		Verified:      result.Identity.Verified,
		LowConfidence: result.Identity.LowConfidence,
		Strategy:      result.Identity.Strategy,
		Attempts:      result.Attempts,
	}
}

// CorrectScanRequest is the manual-correction payload
type CorrectScanRequest struct {
	CardID  string `json:"card_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	SetCode string `json:"set_code"`
}
