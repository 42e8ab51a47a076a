// Package migration evolves the schema-less document store through versioned,
// reversible steps. State lives in the store itself: a singleton
// migration_state record is the source of truth for what has run, and every
// execution leaves an audit record in the migrations collection.
package migration

import (
	"context"
	"strconv"
	"strings"

	"skillcourt-backend/application/ports"
)

// Migration is one versioned, reversible transformation. ID is unique and
// immutable; Version orders execution (ascending for up, descending for down).
type Migration struct {
	ID      string
	Version string
	Name    string
	Up      func(ctx context.Context, store ports.DocumentStore) error
	Down    func(ctx context.Context, store ports.DocumentStore) error
}

// Execution record statuses written to the migrations collection.
const (
	StatusStarted        = "started"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
	StatusRolledBack     = "rolled_back"
	StatusRollbackFailed = "rollback_failed"
)

// State mirrors the singleton migration_state record. ExecutedMigrationIDs
// only grows through successful up() runs and only shrinks through successful
// down() runs.
type State struct {
	CurrentVersion       string
	ExecutedMigrationIDs []string
	LastMigrationAt      string
}

// InitialVersion is the version reported before any migration has run
const InitialVersion = "0.0.0"

// CompareVersions orders two semantic versions component-wise numerically:
// "1.10.0" sorts after "1.9.0". Missing components count as zero. Returns
// -1, 0 or 1.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func stateToRecord(s State) ports.Record {
	ids := make([]interface{}, len(s.ExecutedMigrationIDs))
	for i, id := range s.ExecutedMigrationIDs {
		ids[i] = id
	}
	return ports.Record{
		"currentVersion":       s.CurrentVersion,
		"executedMigrationIds": ids,
		"lastMigrationAt":      s.LastMigrationAt,
	}
}

// stateFromRecord tolerates both []string (in-memory store) and
// []interface{} (unmarshalled attribute values).
func stateFromRecord(r ports.Record) State {
	s := State{
		CurrentVersion:  r.String("currentVersion"),
		LastMigrationAt: r.String("lastMigrationAt"),
	}
	if s.CurrentVersion == "" {
		s.CurrentVersion = InitialVersion
	}
	switch ids := r["executedMigrationIds"].(type) {
	case []string:
		s.ExecutedMigrationIDs = append(s.ExecutedMigrationIDs, ids...)
	case []interface{}:
		for _, v := range ids {
			if id, ok := v.(string); ok {
				s.ExecutedMigrationIDs = append(s.ExecutedMigrationIDs, id)
			}
		}
	}
	return s
}
