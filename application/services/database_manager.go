// Package services holds the operator-facing orchestration over the document
// store: database bootstrap and the catalog domain service.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skillcourt-backend/application/migration"
	"skillcourt-backend/application/ports"
	"skillcourt-backend/application/seed"
	apperrors "skillcourt-backend/pkg/errors"
)

// DatabaseManager orchestrates migrations and seeding for deployment and
// reset flows. It is the only caller of the migration engine and the seeder;
// request-serving code never touches either.
type DatabaseManager struct {
	store     ports.DocumentStore
	engine    *migration.Engine
	seeder    *seed.Loader
	publisher ports.EventPublisher
	logger    *zap.Logger
	clock     func() time.Time
}

// NewDatabaseManager wires the bootstrap orchestrator
func NewDatabaseManager(
	store ports.DocumentStore,
	engine *migration.Engine,
	seeder *seed.Loader,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *DatabaseManager {
	return &DatabaseManager{
		store:     store,
		engine:    engine,
		seeder:    seeder,
		publisher: publisher,
		logger:    logger,
		clock:     time.Now,
	}
}

// InitializeReport summarizes an Initialize or Reset run
type InitializeReport struct {
	Migrations *migration.RunReport `json:"migrations"`
	Seed       *seed.Result         `json:"seed,omitempty"`
	Skipped    bool                 `json:"seedSkipped,omitempty"`
}

// StatusReport is the combined operator view returned by GetStatus
type StatusReport struct {
	Migrations *migration.StatusReport `json:"migrations"`
	Integrity  *seed.IntegrityReport   `json:"integrity"`
	Health     ports.HealthStatus      `json:"health"`
}

// Initialize brings a fresh or upgraded deployment to the current schema:
// pending migrations first, then seeding. An already-seeded store is left
// alone rather than treated as a failure.
func (m *DatabaseManager) Initialize(ctx context.Context) (*InitializeReport, error) {
	report := &InitializeReport{}

	runReport, err := m.engine.RunPendingMigrations(ctx)
	if err != nil {
		return report, err
	}
	report.Migrations = runReport

	seedResult, err := m.seeder.SeedAll(ctx, seed.Options{})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeSeedingFailed) && apperrors.IsConflict(err) {
			m.logger.Info("store already seeded, skipping")
			report.Skipped = true
			return report, nil
		}
		m.audit(ctx, ports.AuditSeedFailed, map[string]interface{}{"error": err.Error()})
		return report, err
	}
	report.Seed = seedResult
	m.audit(ctx, ports.AuditSeedCompleted, map[string]interface{}{
		"sports":       seedResult.SportsCreated,
		"skills":       seedResult.SkillsCreated,
		"quizzes":      seedResult.QuizzesCreated,
		"questions":    seedResult.QuestionsCreated,
		"achievements": seedResult.AchievementsCreated,
	})
	return report, nil
}

// Reset clears every managed collection, re-runs pending migrations and
// reseeds from scratch. Destructive; exposed only on operator surfaces.
func (m *DatabaseManager) Reset(ctx context.Context) (*InitializeReport, error) {
	report := &InitializeReport{}

	if err := m.seeder.ClearAllData(ctx); err != nil {
		return report, err
	}
	m.audit(ctx, ports.AuditDataCleared, nil)

	runReport, err := m.engine.RunPendingMigrations(ctx)
	if err != nil {
		return report, err
	}
	report.Migrations = runReport

	seedResult, err := m.seeder.SeedAll(ctx, seed.Options{Force: true})
	if err != nil {
		m.audit(ctx, ports.AuditSeedFailed, map[string]interface{}{"error": err.Error()})
		return report, err
	}
	report.Seed = seedResult
	m.audit(ctx, ports.AuditSeedCompleted, map[string]interface{}{
		"sports": seedResult.SportsCreated,
		"forced": true,
	})

	m.store.ClearCache()
	return report, nil
}

// GetStatus reports migration position, referential integrity and store
// health without mutating anything.
func (m *DatabaseManager) GetStatus(ctx context.Context) (*StatusReport, error) {
	migrations, err := m.engine.Status(ctx)
	if err != nil {
		return nil, err
	}
	integrity, err := m.seeder.ValidateDataIntegrity(ctx)
	if err != nil {
		return nil, err
	}
	return &StatusReport{
		Migrations: migrations,
		Integrity:  integrity,
		Health:     m.store.HealthCheck(ctx),
	}, nil
}

// audit publishes best-effort; a failed publish never fails the operation
func (m *DatabaseManager) audit(ctx context.Context, eventType string, detail map[string]interface{}) {
	err := m.publisher.Publish(ctx, ports.AuditEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Subject:    "database-manager",
		Detail:     detail,
		OccurredAt: m.clock().UTC(),
	})
	if err != nil {
		m.logger.Warn("audit event publish failed",
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
