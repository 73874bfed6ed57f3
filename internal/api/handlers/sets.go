package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-identify/internal/models"
	"github.com/codyseavey/tcg-identify/internal/services"
)

// SetDirectory is the subset of services.SetDirectory the handlers use
type SetDirectory interface {
	Sets(ctx context.Context, game models.Game, lang models.Language) ([]models.CanonicalSet, error)
	ResolveSetID(ctx context.Context, game models.Game, guessedID, guessedName string, lang models.Language) (string, bool)
	Invalidate(game models.Game, lang models.Language)
	InvalidateAll()
}

type SetHandler struct {
	sets SetDirectory
}

func NewSetHandler(sets SetDirectory) *SetHandler {
	return &SetHandler{sets: sets}
}

// ListSets returns the canonical set listing for a game
func (h *SetHandler) ListSets(c *gin.Context) {
	game, ok := gameParam(c)
	if !ok {
		return
	}
	lang := models.NormalizeLanguage(c.Query("lang"))

	sets, err := h.sets.Sets(c.Request.Context(), game, lang)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, services.ErrUnsupportedGame) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game":     game,
		"language": lang,
		"sets":     sets,
	})
}

// ResolveSet maps a guessed set code or name to the canonical code
func (h *SetHandler) ResolveSet(c *gin.Context) {
	game, ok := gameParam(c)
	if !ok {
		return
	}
	id, name := c.Query("id"), c.Query("name")
	if id == "" && name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id or name is required"})
		return
	}
	lang := models.NormalizeLanguage(c.Query("lang"))

	code, resolved := h.sets.ResolveSetID(c.Request.Context(), game, id, name, lang)
	c.JSON(http.StatusOK, gin.H{
		"game":     game,
		"code":     code,
		"resolved": resolved,
	})
}

// InvalidateSets drops cached listings: one (game, lang) or, with no game, all of them
func (h *SetHandler) InvalidateSets(c *gin.Context) {
	raw := c.Query("game")
	if raw == "" {
		h.sets.InvalidateAll()
		c.JSON(http.StatusOK, gin.H{"message": "all set listings cleared"})
		return
	}

	game := models.ParseGame(raw)
	if game == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown game"})
		return
	}
	h.sets.Invalidate(game, models.NormalizeLanguage(c.Query("lang")))
	c.JSON(http.StatusOK, gin.H{"message": "set listing cleared", "game": game})
}

func gameParam(c *gin.Context) (models.Game, bool) {
	game := models.ParseGame(c.Param("game"))
	if game == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown game"})
		return "", false
	}
	return game, true
}
