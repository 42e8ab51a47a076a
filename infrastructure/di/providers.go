// Package di wires the application graph: store client, resilience,
// migration engine, seeder, services and the HTTP router.
package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"skillcourt-backend/application/migration"
	"skillcourt-backend/application/ports"
	"skillcourt-backend/application/seed"
	"skillcourt-backend/application/services"
	"skillcourt-backend/infrastructure/config"
	"skillcourt-backend/infrastructure/messaging/eventbridge"
	"skillcourt-backend/infrastructure/persistence/cache"
	"skillcourt-backend/infrastructure/persistence/dynamodb"
	"skillcourt-backend/infrastructure/persistence/memory"
	"skillcourt-backend/infrastructure/persistence/resilience"
	"skillcourt-backend/infrastructure/subscriptions"
	"skillcourt-backend/interfaces/http/rest"
	"skillcourt-backend/interfaces/http/rest/handlers"
)

// ProvideLogger creates the process logger
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig loads AWS configuration for the configured region
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCache creates the bounded document cache
func ProvideCache(cfg *config.Config) ports.Cache {
	return cache.NewBoundedCache(cfg.CacheMaxEntries, cfg.CacheTTL)
}

// ProvideExecutor creates the retry executor
func ProvideExecutor(logger *zap.Logger) *resilience.Executor {
	return resilience.NewExecutor(logger)
}

// ProvideHub creates the subscription hub
func ProvideHub(logger *zap.Logger) *subscriptions.Hub {
	return subscriptions.NewHub(logger)
}

// ProvideDocumentStore selects the configured store backend
func ProvideDocumentStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	c ports.Cache,
	executor *resilience.Executor,
	hub *subscriptions.Hub,
	logger *zap.Logger,
) ports.DocumentStore {
	if cfg.StoreBackend == "memory" {
		return memory.NewDocumentStore(logger)
	}
	return dynamodb.NewStore(client, cfg.DynamoDBTable, cfg.IndexName, c, executor, hub, logger)
}

// ProvideEventPublisher selects the audit publisher; development runs keep
// events local.
func ProvideEventPublisher(
	cfg *config.Config,
	client *awseventbridge.Client,
	logger *zap.Logger,
) ports.EventPublisher {
	if cfg.IsDevelopment() {
		return ports.NopPublisher{}
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMigrationEngine creates the engine over the registered migrations
func ProvideMigrationEngine(
	store ports.DocumentStore,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *migration.Engine {
	return migration.NewEngine(store, publisher, logger, migration.Registered())
}

// ProvideSeedLoader creates the seeder
func ProvideSeedLoader(store ports.DocumentStore, logger *zap.Logger) *seed.Loader {
	return seed.NewLoader(store, logger)
}

// ProvideDatabaseManager creates the bootstrap orchestrator
func ProvideDatabaseManager(
	store ports.DocumentStore,
	engine *migration.Engine,
	seeder *seed.Loader,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.DatabaseManager {
	return services.NewDatabaseManager(store, engine, seeder, publisher, logger)
}

// ProvideCatalogService creates the catalog domain service
func ProvideCatalogService(store ports.DocumentStore, logger *zap.Logger) *services.CatalogService {
	return services.NewCatalogService(store, logger)
}

// ProvideAdminHandler creates the admin HTTP handler
func ProvideAdminHandler(
	manager *services.DatabaseManager,
	engine *migration.Engine,
	seeder *seed.Loader,
	logger *zap.Logger,
) *handlers.AdminHandler {
	return handlers.NewAdminHandler(manager, engine, seeder, logger)
}

// ProvideCatalogHandler creates the catalog HTTP handler
func ProvideCatalogHandler(catalog *services.CatalogService, logger *zap.Logger) *handlers.CatalogHandler {
	return handlers.NewCatalogHandler(catalog, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	store ports.DocumentStore,
	admin *handlers.AdminHandler,
	catalog *handlers.CatalogHandler,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(store, admin, catalog, logger)
}
