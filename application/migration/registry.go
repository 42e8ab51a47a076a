package migration

import (
	"context"

	"skillcourt-backend/application/ports"
	"skillcourt-backend/domain/catalog"
)

// Registered returns the platform's migration catalog. Order here is
// arbitrary; the engine sorts by version.
func Registered() []Migration {
	return []Migration{
		appSettingsDefaults(),
		backfillCatalogCounters(),
		backfillSoftDeleteFlags(),
	}
}

// appSettingsDefaults creates the singleton app_settings record with platform
// defaults; rollback removes it.
func appSettingsDefaults() Migration {
	return Migration{
		ID:      "001-app-settings-defaults",
		Version: "1.0.0",
		Name:    "Create app settings singleton with defaults",
		Up: func(ctx context.Context, store ports.DocumentStore) error {
			exists, err := store.Exists(ctx, catalog.CollectionAppSettings, catalog.AppSettingsID)
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
			return store.BatchWrite(ctx, []ports.BatchOperation{{
				Type:       ports.BatchCreate,
				Collection: catalog.CollectionAppSettings,
				ID:         catalog.AppSettingsID,
				Data: ports.Record{
					"maintenanceMode":   false,
					"minAppVersion":     "1.0.0",
					"maxQuizAttempts":   float64(3),
					"supportEmail":      "support@skillcourt.app",
					"featureToggleBeta": false,
				},
			}})
		},
		Down: func(ctx context.Context, store ports.DocumentStore) error {
			return store.Delete(ctx, catalog.CollectionAppSettings, catalog.AppSettingsID, ports.DeleteOptions{})
		},
	}
}

// backfillCatalogCounters recomputes the denormalized child counters on every
// sport and skill from the actual child rows. Rollback zeroes the counters;
// the store cannot drop a field from a partial update.
func backfillCatalogCounters() Migration {
	return Migration{
		ID:      "002-backfill-catalog-counters",
		Version: "1.1.0",
		Name:    "Backfill skill/quiz/question counters from child rows",
		Up: func(ctx context.Context, store ports.DocumentStore) error {
			sports, err := store.Query(ctx, catalog.CollectionSports, ports.QueryOptions{})
			if err != nil {
				return err
			}
			for _, sport := range sports.Items {
				skillCount, err := store.Count(ctx, catalog.CollectionSkills, ports.QueryOptions{
					Where: []ports.WhereClause{{Field: catalog.FieldSportID, Operator: ports.OpEqual, Value: sport.ID()}},
				})
				if err != nil {
					return err
				}
				quizCount, err := store.Count(ctx, catalog.CollectionQuizzes, ports.QueryOptions{
					Where: []ports.WhereClause{{Field: catalog.FieldSportID, Operator: ports.OpEqual, Value: sport.ID()}},
				})
				if err != nil {
					return err
				}
				_, err = store.Update(ctx, catalog.CollectionSports, sport.ID(), ports.Record{
					catalog.FieldSkillCount: float64(skillCount),
					catalog.FieldQuizCount:  float64(quizCount),
				})
				if err != nil {
					return err
				}
			}

			skills, err := store.Query(ctx, catalog.CollectionSkills, ports.QueryOptions{})
			if err != nil {
				return err
			}
			for _, skill := range skills.Items {
				quizCount, err := store.Count(ctx, catalog.CollectionQuizzes, ports.QueryOptions{
					Where: []ports.WhereClause{{Field: catalog.FieldSkillID, Operator: ports.OpEqual, Value: skill.ID()}},
				})
				if err != nil {
					return err
				}
				if _, err := store.Update(ctx, catalog.CollectionSkills, skill.ID(), ports.Record{
					catalog.FieldQuizCount: float64(quizCount),
				}); err != nil {
					return err
				}
			}
			return nil
		},
		Down: func(ctx context.Context, store ports.DocumentStore) error {
			for _, collection := range []string{catalog.CollectionSports, catalog.CollectionSkills} {
				result, err := store.Query(ctx, collection, ports.QueryOptions{})
				if err != nil {
					return err
				}
				for _, record := range result.Items {
					partial := ports.Record{catalog.FieldQuizCount: float64(0)}
					if collection == catalog.CollectionSports {
						partial[catalog.FieldSkillCount] = float64(0)
					}
					if _, err := store.Update(ctx, collection, record.ID(), partial); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

// backfillSoftDeleteFlags stamps isDeleted=false on catalog records written
// before soft delete existed, so deletion filters can rely on the field.
func backfillSoftDeleteFlags() Migration {
	return Migration{
		ID:      "003-backfill-soft-delete-flags",
		Version: "1.2.0",
		Name:    "Backfill isDeleted flag on catalog collections",
		Up: func(ctx context.Context, store ports.DocumentStore) error {
			for _, collection := range []string{
				catalog.CollectionSports,
				catalog.CollectionSkills,
				catalog.CollectionQuizzes,
				catalog.CollectionQuizQuestions,
			} {
				result, err := store.Query(ctx, collection, ports.QueryOptions{})
				if err != nil {
					return err
				}
				for _, record := range result.Items {
					if _, present := record[ports.FieldIsDeleted]; present {
						continue
					}
					if _, err := store.Update(ctx, collection, record.ID(), ports.Record{
						ports.FieldIsDeleted: false,
					}); err != nil {
						return err
					}
				}
			}
			return nil
		},
		Down: func(ctx context.Context, store ports.DocumentStore) error {
			// An absent flag and a false flag read the same everywhere, so
			// there is nothing to revert.
			return nil
		},
	}
}
