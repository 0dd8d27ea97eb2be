package bootstrap

import (
	"diasporan-backend/internal/config"
	"diasporan-backend/internal/interfaces/router"
	"diasporan-backend/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for Vercel serverless (api handler imports this package, not internal).
// The listing event relay is not started here; serverless instances do not run background work.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Env, cfg.LogLevel)
	app, _, _, err := router.CreateApp(cfg)
	return app, err
}
