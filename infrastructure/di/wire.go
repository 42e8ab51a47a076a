//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"skillcourt-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCache,
	ProvideExecutor,
	ProvideHub,
	ProvideDocumentStore,
	ProvideEventPublisher,
	ProvideMigrationEngine,
	ProvideSeedLoader,
	ProvideDatabaseManager,
	ProvideCatalogService,
	ProvideAdminHandler,
	ProvideCatalogHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
