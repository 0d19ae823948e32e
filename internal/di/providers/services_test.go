package providers

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-app/recall-server/internal/config"
	"github.com/recall-app/recall-server/internal/events"
	"github.com/recall-app/recall-server/internal/logger"
	"github.com/recall-app/recall-server/internal/service"
	"github.com/recall-app/recall-server/internal/store"
)

// newImporterInjector wires the dependencies ProvideImporter invokes, backed
// by a real Badger store in a temp dir.
func newImporterInjector(t *testing.T, cfg *config.Config) do.Injector {
	t.Helper()

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := logger.New(logger.Config{Writer: io.Discard})

	st, err := store.New(filepath.Join(t.TempDir(), "db"), slogger, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	broadcaster := events.NewBroadcaster(slogger)
	go broadcaster.Start(ctx)
	t.Cleanup(cancel)

	svc := service.NewRecordService(st, nil, nil, slogger, service.RecordServiceOptions{
		DebounceDelay: 10 * time.Millisecond,
	})
	t.Cleanup(svc.Close)
	require.NoError(t, svc.Load(context.Background()))

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, log)
	do.ProvideValue(injector, &StoreHandle{RecordStore: st})
	do.ProvideValue(injector, &BroadcasterHandle{Broadcaster: broadcaster, cancel: cancel})
	do.ProvideValue(injector, &RecordServiceHandle{RecordService: svc})
	return injector
}

func TestProvideImporter_ReturnsWithoutBlocking(t *testing.T) {
	importDir := t.TempDir()

	// A file already waiting in the drop directory: imported by the
	// background watcher, not before the provider returns.
	require.NoError(t, os.WriteFile(
		filepath.Join(importDir, "seed.json"),
		[]byte(`[{"tags":["dropped","file"]}]`), 0644))

	cfg := &config.Config{
		Import: config.ImportConfig{
			Enabled:     true,
			Dir:         importDir,
			SettleDelay: 10 * time.Millisecond,
		},
	}
	injector := newImporterInjector(t, cfg)

	type provided struct {
		handle *ImporterHandle
		err    error
	}
	done := make(chan provided, 1)
	go func() {
		handle, err := ProvideImporter(injector)
		done <- provided{handle, err}
	}()

	var handle *ImporterHandle
	select {
	case p := <-done:
		require.NoError(t, p.err)
		handle = p.handle
	case <-time.After(2 * time.Second):
		t.Fatal("ProvideImporter blocked instead of starting the watcher in the background")
	}
	require.NotNil(t, handle.Importer)
	t.Cleanup(func() { _ = handle.Shutdown() })

	// The pre-existing file lands through the background start.
	st := do.MustInvoke[*StoreHandle](injector)
	assert.Eventually(t, func() bool {
		count, err := st.CountRecords(context.Background())
		return err == nil && count == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProvideImporter_Disabled(t *testing.T) {
	cfg := &config.Config{Import: config.ImportConfig{Enabled: false}}
	injector := newImporterInjector(t, cfg)

	handle, err := ProvideImporter(injector)
	require.NoError(t, err)
	assert.Nil(t, handle.Importer)
	assert.NoError(t, handle.Shutdown())
}
