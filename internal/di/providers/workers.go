package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/atelierapp/atelier-server/internal/config"
	"github.com/atelierapp/atelier-server/internal/imagegen"
	"github.com/atelierapp/atelier-server/internal/logger"
	"github.com/atelierapp/atelier-server/internal/objstore"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

// ImageWorkerHandle owns the image generation worker lifecycle.
type ImageWorkerHandle struct {
	Service *imagegen.Service
	cancel  context.CancelFunc
}

// Shutdown stops the worker and drains in-flight jobs.
func (h *ImageWorkerHandle) Shutdown() error {
	h.cancel()
	return h.Service.Shutdown()
}

// ProvideImageWorker provides the background image renderer and starts it.
func ProvideImageWorker(i do.Injector) (*ImageWorkerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	disk := do.MustInvoke[*objstore.Disk](i)
	recorder := do.MustInvoke[*telemetry.Recorder](i)

	renderer := imagegen.NewDiskRenderer(disk)
	svc := imagegen.New(storeHandle.Store, renderer, recorder, log.Logger, cfg.Assets.JobBuffer)

	ctx, cancel := context.WithCancel(context.Background())
	if err := svc.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	return &ImageWorkerHandle{Service: svc, cancel: cancel}, nil
}
