package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/recall-app/recall-server/internal/api"
	"github.com/recall-app/recall-server/internal/config"
	"github.com/recall-app/recall-server/internal/importer"
	"github.com/recall-app/recall-server/internal/logger"
	"github.com/recall-app/recall-server/internal/ratelimit"
	"github.com/recall-app/recall-server/internal/service"
)

// RateLimiterHandle wraps the keyed rate limiter with shutdown capability.
// The wrapped limiter is nil when limiting is disabled by configuration.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	if h.KeyedRateLimiter != nil {
		h.Stop()
	}
	return nil
}

// ProvideRateLimiter provides the per-client request limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.RateLimit.Enabled {
		log.Info("Rate limiting disabled by configuration")
		return &RateLimiterHandle{}, nil
	}

	return &RateLimiterHandle{
		KeyedRateLimiter: ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	broadcasterHandle := do.MustInvoke[*BroadcasterHandle](i)
	recordHandle := do.MustInvoke[*RecordServiceHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	importerHandle := do.MustInvoke[*ImporterHandle](i)
	exporter := do.MustInvoke[*importer.Exporter](i)
	limiterHandle := do.MustInvoke[*RateLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Record:   recordHandle.RecordService,
		Search:   searchService,
		Exporter: exporter,
		Importer: importerHandle.Importer,
	}

	handler := api.NewServer(storeHandle.RecordStore, services, broadcasterHandle.Broadcaster, log.Logger, api.ServerOptions{
		RateLimiter: limiterHandle.KeyedRateLimiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "name", cfg.Server.Name, "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
