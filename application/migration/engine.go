package migration

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
	"skillcourt-backend/domain/catalog"
	apperrors "skillcourt-backend/pkg/errors"
)

// Engine runs registered migrations against the document store.
//
// Runs must be serialized by the caller: the engine assumes a deployment lock
// or equivalent prevents two concurrent RunPendingMigrations calls against
// the same store. A second in-flight run is not guarded against here.
type Engine struct {
	store      ports.DocumentStore
	publisher  ports.EventPublisher
	logger     *zap.Logger
	migrations []Migration
	clock      func() time.Time
}

// NewEngine creates an engine over the given migration list. Declaration
// order is irrelevant; execution always follows version order.
func NewEngine(store ports.DocumentStore, publisher ports.EventPublisher, logger *zap.Logger, migrations []Migration) *Engine {
	return &Engine{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		migrations: migrations,
		clock:      time.Now,
	}
}

// RunReport summarizes a RunPendingMigrations call
type RunReport struct {
	Applied        []string `json:"applied"`
	CurrentVersion string   `json:"currentVersion"`
}

// StatusReport is the read-only view returned by Status
type StatusReport struct {
	CurrentVersion  string   `json:"currentVersion"`
	LatestVersion   string   `json:"latestVersion"`
	ExecutedCount   int      `json:"executedCount"`
	PendingCount    int      `json:"pendingCount"`
	PendingVersions []string `json:"pendingVersions"`
}

// RunPendingMigrations applies every migration not yet recorded in
// migration_state, ascending by version. Each migration gets an execution
// record before the run advances. A failed up() triggers a best-effort down()
// of that migration only; earlier completions in the same run are kept, and
// the run aborts.
func (e *Engine) RunPendingMigrations(ctx context.Context) (*RunReport, error) {
	state, exists, err := e.loadState(ctx)
	if err != nil {
		return nil, err
	}

	pending := e.pendingFor(state)
	report := &RunReport{Applied: []string{}, CurrentVersion: state.CurrentVersion}
	if len(pending) == 0 {
		return report, nil
	}

	for _, m := range pending {
		e.publish(ctx, ports.AuditMigrationStarted, m)
		recordID, err := e.writeExecutionRecord(ctx, m, StatusStarted, "")
		if err != nil {
			return report, err
		}

		e.logger.Info("running migration",
			zap.String("id", m.ID),
			zap.String("version", m.Version),
		)

		if upErr := m.Up(ctx, e.store); upErr != nil {
			e.updateExecutionRecord(ctx, recordID, StatusFailed, upErr.Error())
			e.publish(ctx, ports.AuditMigrationFailed, m)

			// Best-effort local rollback of this migration only. If the
			// down() also fails the data may sit ahead of the recorded
			// version; the rollback_failed record preserves that fact.
			if m.Down != nil {
				if downErr := m.Down(ctx, e.store); downErr != nil {
					e.logger.Error("rollback after failed migration also failed",
						zap.String("id", m.ID),
						zap.Error(downErr),
					)
					e.updateExecutionRecord(ctx, recordID, StatusRollbackFailed, downErr.Error())
				} else {
					e.updateExecutionRecord(ctx, recordID, StatusRolledBack, "")
				}
			}

			return report, apperrors.NewInternalError("migration failed").
				WithCause(upErr).
				WithCode(apperrors.CodeMigrationExecutionFailed).
				WithDetails(map[string]interface{}{
					"migrationId": m.ID,
					"version":     m.Version,
				})
		}

		e.updateExecutionRecord(ctx, recordID, StatusCompleted, "")

		state.ExecutedMigrationIDs = append(state.ExecutedMigrationIDs, m.ID)
		state.CurrentVersion = m.Version
		state.LastMigrationAt = e.clock().UTC().Format(time.RFC3339Nano)
		if err := e.persistState(ctx, state, &exists); err != nil {
			return report, err
		}

		report.Applied = append(report.Applied, m.ID)
		report.CurrentVersion = m.Version
		e.publish(ctx, ports.AuditMigrationCompleted, m)
	}

	return report, nil
}

// RollbackToVersion reverts executed migrations with version greater than
// target, descending. CurrentVersion is recomputed after each step as the
// maximum version still recorded as executed, or 0.0.0 when none remain.
func (e *Engine) RollbackToVersion(ctx context.Context, target string) (*RunReport, error) {
	state, exists, err := e.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFoundError("migration state").
			WithCode(apperrors.CodeMigrationStateNotFound)
	}

	executed := make(map[string]bool, len(state.ExecutedMigrationIDs))
	for _, id := range state.ExecutedMigrationIDs {
		executed[id] = true
	}

	var toRevert []Migration
	for _, m := range e.migrations {
		if executed[m.ID] && CompareVersions(m.Version, target) > 0 {
			toRevert = append(toRevert, m)
		}
	}
	sort.Slice(toRevert, func(i, j int) bool {
		return CompareVersions(toRevert[i].Version, toRevert[j].Version) > 0
	})

	report := &RunReport{Applied: []string{}, CurrentVersion: state.CurrentVersion}

	for _, m := range toRevert {
		e.logger.Info("rolling back migration",
			zap.String("id", m.ID),
			zap.String("version", m.Version),
		)

		if m.Down == nil {
			return report, apperrors.NewInternalError("migration has no down step").
				WithCode(apperrors.CodeRollbackExecutionFailed).
				WithDetail("migrationId", m.ID)
		}
		if downErr := m.Down(ctx, e.store); downErr != nil {
			e.writeRollbackRecord(ctx, m, StatusRollbackFailed, downErr.Error())
			return report, apperrors.NewInternalError("rollback failed").
				WithCause(downErr).
				WithCode(apperrors.CodeRollbackExecutionFailed).
				WithDetails(map[string]interface{}{
					"migrationId": m.ID,
					"version":     m.Version,
				})
		}
		e.writeRollbackRecord(ctx, m, StatusRolledBack, "")

		delete(executed, m.ID)
		state.ExecutedMigrationIDs = remainingIDs(state.ExecutedMigrationIDs, m.ID)
		state.CurrentVersion = e.maxExecutedVersion(executed)
		state.LastMigrationAt = e.clock().UTC().Format(time.RFC3339Nano)
		if err := e.persistState(ctx, state, &exists); err != nil {
			return report, err
		}

		report.Applied = append(report.Applied, m.ID)
		report.CurrentVersion = state.CurrentVersion
	}

	if len(toRevert) > 0 {
		e.publish(ctx, ports.AuditRollbackCompleted, Migration{ID: "rollback", Version: state.CurrentVersion})
	}
	return report, nil
}

// Status reports current vs latest known version without mutating state
func (e *Engine) Status(ctx context.Context) (*StatusReport, error) {
	state, _, err := e.loadState(ctx)
	if err != nil {
		return nil, err
	}

	pending := e.pendingFor(state)
	report := &StatusReport{
		CurrentVersion:  state.CurrentVersion,
		LatestVersion:   state.CurrentVersion,
		ExecutedCount:   len(state.ExecutedMigrationIDs),
		PendingCount:    len(pending),
		PendingVersions: []string{},
	}
	for _, m := range e.migrations {
		if CompareVersions(m.Version, report.LatestVersion) > 0 {
			report.LatestVersion = m.Version
		}
	}
	for _, m := range pending {
		report.PendingVersions = append(report.PendingVersions, m.Version)
	}
	return report, nil
}

// pendingFor is the set difference against executed ids, ascending by version
func (e *Engine) pendingFor(state State) []Migration {
	executed := make(map[string]bool, len(state.ExecutedMigrationIDs))
	for _, id := range state.ExecutedMigrationIDs {
		executed[id] = true
	}

	var pending []Migration
	for _, m := range e.migrations {
		if !executed[m.ID] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return CompareVersions(pending[i].Version, pending[j].Version) < 0
	})
	return pending
}

// loadState reads the singleton state record, reporting whether it exists.
// Reads bypass the cache: migration decisions must never act on a stale copy.
func (e *Engine) loadState(ctx context.Context) (State, bool, error) {
	record, err := e.store.GetByID(ctx, catalog.CollectionMigrationState, catalog.MigrationStateID, ports.GetOptions{BypassCache: true})
	if err != nil {
		return State{}, false, err
	}
	if record == nil {
		return State{CurrentVersion: InitialVersion}, false, nil
	}
	return stateFromRecord(record), true, nil
}

// persistState updates the singleton, creating it on first write. The create
// goes through BatchWrite so the record keeps its fixed id.
func (e *Engine) persistState(ctx context.Context, state State, exists *bool) error {
	if *exists {
		_, err := e.store.Update(ctx, catalog.CollectionMigrationState, catalog.MigrationStateID, stateToRecord(state))
		return err
	}

	err := e.store.BatchWrite(ctx, []ports.BatchOperation{{
		Type:       ports.BatchCreate,
		Collection: catalog.CollectionMigrationState,
		ID:         catalog.MigrationStateID,
		Data:       stateToRecord(state),
	}})
	if err != nil {
		return err
	}
	*exists = true
	return nil
}

func (e *Engine) writeExecutionRecord(ctx context.Context, m Migration, status, errMsg string) (string, error) {
	record := ports.Record{
		"migrationId": m.ID,
		"version":     m.Version,
		"name":        m.Name,
		"status":      status,
	}
	if errMsg != "" {
		record["error"] = errMsg
	}
	created, err := e.store.Create(ctx, catalog.CollectionMigrations, record)
	if err != nil {
		return "", err
	}
	return created.ID(), nil
}

// updateExecutionRecord transitions an execution record; bookkeeping failures
// are logged, never surfaced over the migration outcome itself.
func (e *Engine) updateExecutionRecord(ctx context.Context, recordID, status, errMsg string) {
	partial := ports.Record{"status": status}
	if errMsg != "" {
		partial["error"] = errMsg
	}
	if _, err := e.store.Update(ctx, catalog.CollectionMigrations, recordID, partial); err != nil {
		e.logger.Warn("failed to update migration execution record",
			zap.String("recordId", recordID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

func (e *Engine) writeRollbackRecord(ctx context.Context, m Migration, status, errMsg string) {
	if _, err := e.writeExecutionRecord(ctx, m, status, errMsg); err != nil {
		e.logger.Warn("failed to write rollback record",
			zap.String("migrationId", m.ID),
			zap.Error(err),
		)
	}
}

func (e *Engine) maxExecutedVersion(executed map[string]bool) string {
	max := InitialVersion
	for _, m := range e.migrations {
		if executed[m.ID] && CompareVersions(m.Version, max) > 0 {
			max = m.Version
		}
	}
	return max
}

func (e *Engine) publish(ctx context.Context, eventType string, m Migration) {
	err := e.publisher.Publish(ctx, ports.AuditEvent{
		ID:      uuid.New().String(),
		Type:    eventType,
		Subject: m.ID,
		Detail: map[string]interface{}{
			"version": m.Version,
			"name":    m.Name,
		},
		OccurredAt: e.clock().UTC(),
	})
	if err != nil {
		e.logger.Warn("audit event publish failed",
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

func remainingIDs(ids []string, removed string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != removed {
			out = append(out, id)
		}
	}
	return out
}
