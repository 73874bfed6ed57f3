package main

import (
	"fmt"
	"strings"

	"github.com/codyseavey/tcg-identify/internal/models"
)

func parseGame(raw string) (models.Game, error) {
	game := models.ParseGame(raw)
	if game == "" {
		names := make([]string, 0, len(models.AllGames()))
		for _, g := range models.AllGames() {
			names = append(names, string(g))
		}
		return "", fmt.Errorf("unknown game %q (want one of %s)", raw, strings.Join(names, ", "))
	}
	return game, nil
}
