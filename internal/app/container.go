package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-identify/internal/config"
	"github.com/codyseavey/tcg-identify/internal/database"
	"github.com/codyseavey/tcg-identify/internal/models"
	"github.com/codyseavey/tcg-identify/internal/services"
)

// Container bundles the assembled services shared by the server and the CLI
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Catalogs  map[models.Game]services.CatalogClient
	Sets      *services.SetDirectory
	Verifiers map[models.Game]services.CardVerifier
	Oracle    *services.GeminiService
	Identify  *services.IdentificationService
	Prices    *services.PriceService
	Metadata  *services.MetadataService

	// nil unless Build was asked for a database
	DB    *gorm.DB
	Scans *services.ScanHistory
}

type Options struct {
	// WithDatabase opens DBPath and enables scan history
	WithDatabase bool
}

// Build assembles the dependency graph. Catalog clients and caches are
// created once here and shared by every request.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	c := &Container{Config: cfg, Logger: logger}
	c.Catalogs = NewCatalogs(cfg.Catalogs, logger)
	c.Sets = services.NewSetDirectory(c.Catalogs, logger)
	c.Verifiers = services.NewVerifierRegistry(c.Catalogs, c.Sets, services.VerifierOptions{
		PreferNumberFallback: cfg.Verifier.PreferNumberFallback,
		MaxNumberDistance:    cfg.Verifier.MaxNumberDistance,
	}, logger)

	c.Oracle, err = services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.CacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle: %w", err)
	}
	c.Identify = services.NewIdentificationService(c.Oracle, c.Sets, c.Verifiers, logger)

	justTCG := services.NewJustTCGService(services.JustTCGOptions{
		APIKey:     cfg.JustTCG.APIKey,
		DailyLimit: cfg.JustTCG.DailyLimit,
		Timeout:    cfg.Catalogs.Timeout,
		Logger:     logger,
	})
	c.Prices = services.NewPriceService(justTCG, cfg.Cache.PriceTTL, cfg.Cache.BatchConcurrency, logger)
	c.Metadata = services.NewMetadataService(c.Catalogs, cfg.Cache.MetadataTTL, cfg.Cache.BatchConcurrency, logger)

	if opts.WithDatabase {
		c.DB, err = database.Open(cfg.Server.DBPath, logger)
		if err != nil {
			return nil, err
		}
		images, err := services.NewScanImageStore(cfg.Server.ImagesDir)
		if err != nil {
			_ = database.Close(c.DB)
			return nil, err
		}
		c.Scans = services.NewScanHistory(c.DB, images, logger)
	}

	return c, nil
}

// NewCatalogs builds one client per supported game
func NewCatalogs(cfg config.CatalogConfig, logger *zap.Logger) map[models.Game]services.CatalogClient {
	opts := func(baseURL string) services.CatalogOptions {
		return services.CatalogOptions{BaseURL: baseURL, Timeout: cfg.Timeout, Logger: logger}
	}
	return map[models.Game]services.CatalogClient{
		models.GamePokemon:  services.NewTCGdexClient(opts(cfg.TCGdexBaseURL)),
		models.GameYugioh:   services.NewYGOProDeckClient(opts(cfg.YGOProDeckBaseURL)),
		models.GameOnePiece: services.NewOPTCGClient(opts(cfg.OPTCGBaseURL)),
		models.GameMTG:      services.NewScryfallClient(opts(cfg.ScryfallBaseURL)),
	}
}

// Close releases the database, if one was opened
func (c *Container) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return database.Close(c.DB)
}
