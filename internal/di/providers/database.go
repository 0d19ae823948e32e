package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/recall-app/recall-server/internal/config"
	"github.com/recall-app/recall-server/internal/events"
	"github.com/recall-app/recall-server/internal/logger"
	"github.com/recall-app/recall-server/internal/store"
	"github.com/recall-app/recall-server/internal/store/sqlite"
)

// BroadcasterHandle wraps the event broadcaster with its context for lifecycle management.
type BroadcasterHandle struct {
	*events.Broadcaster
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *BroadcasterHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Broadcaster.Shutdown(ctx)
}

// ProvideBroadcaster provides the server-sent events broadcaster.
func ProvideBroadcaster(i do.Injector) (*BroadcasterHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	broadcaster := events.NewBroadcaster(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go broadcaster.Start(ctx)

	log.Info("Event broadcaster started")

	return &BroadcasterHandle{
		Broadcaster: broadcaster,
		cancel:      cancel,
	}, nil
}

// StoreHandle wraps the record store with shutdown capability.
type StoreHandle struct {
	store.RecordStore
}

// SetSearchIndexer forwards indexing hooks to the concrete backend.
func (h *StoreHandle) SetSearchIndexer(indexer store.SearchIndexer) {
	switch s := h.RecordStore.(type) {
	case *store.Store:
		s.SetSearchIndexer(indexer)
	case *sqlite.Store:
		s.SetSearchIndexer(indexer)
	}
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the record store selected by configuration.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	broadcasterHandle := do.MustInvoke[*BroadcasterHandle](i)

	var (
		db  store.RecordStore
		err error
	)
	switch cfg.Store.Backend {
	case "sqlite":
		dbPath := filepath.Join(cfg.Data.BasePath, "recall.db")
		db, err = sqlite.Open(dbPath, log.Logger, broadcasterHandle.Broadcaster)
		if err != nil {
			return nil, err
		}
		log.Info("Record store initialized", "backend", "sqlite", "path", dbPath)
	default:
		dbPath := filepath.Join(cfg.Data.BasePath, "db")
		db, err = store.New(dbPath, log.Logger, broadcasterHandle.Broadcaster)
		if err != nil {
			return nil, err
		}
		log.Info("Record store initialized", "backend", "badger", "path", dbPath)
	}

	return &StoreHandle{RecordStore: db}, nil
}
