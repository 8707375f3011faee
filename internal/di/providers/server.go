package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/atelierapp/atelier-server/internal/api"
	"github.com/atelierapp/atelier-server/internal/config"
	"github.com/atelierapp/atelier-server/internal/logger"
	"github.com/atelierapp/atelier-server/internal/service"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

// HTTPServerHandle owns the HTTP listener lifecycle.
type HTTPServerHandle struct {
	server *http.Server
}

// Shutdown drains in-flight requests before stopping the listener.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	recorder := do.MustInvoke[*telemetry.Recorder](i)

	services := &api.Services{
		Catalog:  do.MustInvoke[*service.CatalogService](i),
		Texture:  do.MustInvoke[*service.TextureService](i),
		Recovery: do.MustInvoke[*service.RecoveryService](i),
	}

	srv := api.NewServer(storeHandle.Store, services, recorder, log.Logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", "error", err)
		}
	}()

	return &HTTPServerHandle{server: httpServer}, nil
}
