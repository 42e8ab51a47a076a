package di

import (
	"go.uber.org/zap"

	"skillcourt-backend/application/migration"
	"skillcourt-backend/application/ports"
	"skillcourt-backend/application/seed"
	"skillcourt-backend/application/services"
	"skillcourt-backend/infrastructure/config"
	"skillcourt-backend/interfaces/http/rest"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	Store           ports.DocumentStore
	EventPublisher  ports.EventPublisher
	MigrationEngine *migration.Engine
	SeedLoader      *seed.Loader
	DatabaseManager *services.DatabaseManager
	CatalogService  *services.CatalogService
	Router          *rest.Router
}
