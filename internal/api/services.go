package api

import (
	"github.com/recall-app/recall-server/internal/importer"
	"github.com/recall-app/recall-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Record   *service.RecordService
	Search   *service.SearchService
	Exporter *importer.Exporter
	Importer *importer.Importer
}
