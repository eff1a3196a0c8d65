package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/lmoretti/finquery/config"
	"github.com/lmoretti/finquery/internal/api"
	"github.com/lmoretti/finquery/internal/compare"
	"github.com/lmoretti/finquery/internal/market"
	"github.com/lmoretti/finquery/internal/metrics"
	"github.com/lmoretti/finquery/internal/oracle"
	"github.com/lmoretti/finquery/internal/request"
	"github.com/lmoretti/finquery/internal/service"
	"github.com/lmoretti/finquery/internal/storage"
)

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Builds the market data source and the oracle client from config.
//   - Assembles the resolution pipeline (resolver, comparator, walker).
//   - Optionally connects to PostgreSQL for the query audit log.
//   - Creates the HTTP handler layer and the Gin router.
//   - Registers health and readiness probes.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	src := market.NewYahooSource(cfg.Market.YahooBaseURL)
	textOracle := oracle.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, oracle.WithBaseURL(cfg.OpenAI.BaseURL))

	resolver := metrics.NewResolver(src)
	walker := request.NewWalker(resolver, compare.NewComparator(resolver))
	svc := service.NewPromptService(textOracle, walker)

	var audit storage.QueryLogRepository
	var dbPing func() error
	cleanup := func() {}

	if cfg.QueryLog.Enabled {
		// indirection for unit testing
		db, err := postgresOpener(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		repo := storage.NewQueryLogRepository(db)
		if err := repo.EnsureSchema(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		audit = repo
		dbPing = db.Ping
		cleanup = func() { _ = db.Close() }
	}

	handler := api.NewHandler(svc, audit)
	router := api.NewRouter(handler)

	healthHandler := api.NewHealthHandler(dbPing)
	healthHandler.Register(router)

	return router, cleanup, nil
}
