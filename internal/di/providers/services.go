package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/recall-app/recall-server/internal/config"
	"github.com/recall-app/recall-server/internal/display"
	"github.com/recall-app/recall-server/internal/importer"
	"github.com/recall-app/recall-server/internal/logger"
	"github.com/recall-app/recall-server/internal/service"
)

// RecordServiceHandle wraps the record service with shutdown capability.
type RecordServiceHandle struct {
	*service.RecordService
}

// Shutdown implements do.Shutdownable.
func (h *RecordServiceHandle) Shutdown() error {
	h.RecordService.Close()
	return nil
}

// ProvideRecordService provides the deduplicated record view service.
func ProvideRecordService(i do.Injector) (*RecordServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	broadcasterHandle := do.MustInvoke[*BroadcasterHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewRecordService(storeHandle.RecordStore, searchService, broadcasterHandle.Broadcaster, log.Logger, service.RecordServiceOptions{
		DebounceDelay: cfg.Search.DebounceDelay,
		DisplayConfig: display.Config{
			ListToCloudThreshold: cfg.Display.ListToCloudThreshold,
			CloudToListThreshold: cfg.Display.CloudToListThreshold,
		},
	})

	if err := svc.Load(context.Background()); err != nil {
		return nil, err
	}

	log.Info("Record view loaded", "records", len(svc.Records()))

	return &RecordServiceHandle{RecordService: svc}, nil
}

// ImporterHandle wraps the drop-directory importer with its context for
// lifecycle management. The wrapped Importer is nil when imports are
// disabled by configuration.
type ImporterHandle struct {
	*importer.Importer
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ImporterHandle) Shutdown() error {
	if h.Importer == nil {
		return nil
	}
	h.cancel()
	return h.Stop()
}

// ProvideImporter provides the drop-directory importer.
func ProvideImporter(i do.Injector) (*ImporterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Import.Enabled {
		log.Info("Import watcher disabled by configuration")
		return &ImporterHandle{}, nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	broadcasterHandle := do.MustInvoke[*BroadcasterHandle](i)
	recordHandle := do.MustInvoke[*RecordServiceHandle](i)

	imp, err := importer.New(storeHandle.RecordStore, broadcasterHandle.Broadcaster, log.Logger, importer.Options{
		Dir:         cfg.Import.Dir,
		SettleDelay: cfg.Import.SettleDelay,
	})
	if err != nil {
		return nil, err
	}

	// Imported files bypass the in-memory view, so reload it afterwards.
	imp.OnImported(func(ctx context.Context) {
		if err := recordHandle.Load(ctx); err != nil {
			log.Warn("View reload after import failed", "error", err)
		}
	})

	// Start in background: Start blocks until its context is canceled.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := imp.Start(ctx); err != nil {
			log.Error("Import watcher error", "error", err)
		}
	}()

	log.Info("Import watcher started", "dir", cfg.Import.Dir)

	return &ImporterHandle{Importer: imp, cancel: cancel}, nil
}

// ProvideExporter provides the snapshot exporter.
func ProvideExporter(i do.Injector) (*importer.Exporter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return importer.NewExporter(storeHandle.RecordStore, cfg.Export.Dir), nil
}
