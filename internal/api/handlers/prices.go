package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-identify/internal/models"
)

// PriceQuoter is the subset of services.PriceService the handlers use
type PriceQuoter interface {
	BatchQuotes(ctx context.Context, refs []models.CardRef) []models.PriceQuote
	Clear()
	RequestsRemaining() int
}

type PriceHandler struct {
	prices PriceQuoter
}

func NewPriceHandler(prices PriceQuoter) *PriceHandler {
	return &PriceHandler{
		prices: prices,
	}
}

// GetPriceStatus returns the current API quota status
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"requests_remaining": h.prices.RequestsRemaining(),
	})
}

// BatchPrices quotes every card in the request; cards without a price get an empty quote
func (h *PriceHandler) BatchPrices(c *gin.Context) {
	var req batchCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Cards) > maxBatchCards {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many cards (max 200)"})
		return
	}

	quotes := h.prices.BatchQuotes(c.Request.Context(), req.Cards)
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// ClearPriceCache forces the next lookups to refetch
func (h *PriceHandler) ClearPriceCache(c *gin.Context) {
	h.prices.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "price cache cleared"})
}
