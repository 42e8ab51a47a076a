package services

import (
	"context"

	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
	"skillcourt-backend/domain/catalog"
	apperrors "skillcourt-backend/pkg/errors"
)

// CatalogService is the domain-facing consumer of the document store for the
// sports/skills catalog. Reads exclude soft-deleted records.
type CatalogService struct {
	store  ports.DocumentStore
	logger *zap.Logger
}

// NewCatalogService creates a catalog service over the store
func NewCatalogService(store ports.DocumentStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

// notDeleted excludes soft-deleted records; records written before the flag
// existed pass the inequality too.
func notDeleted() ports.WhereClause {
	return ports.WhereClause{Field: ports.FieldIsDeleted, Operator: ports.OpNotEqual, Value: true}
}

// ListSports returns all active sports ordered by name
func (s *CatalogService) ListSports(ctx context.Context) ([]ports.Record, error) {
	result, err := s.store.Query(ctx, catalog.CollectionSports, ports.QueryOptions{
		Where:   []ports.WhereClause{notDeleted()},
		OrderBy: []ports.OrderClause{{Field: "name"}},
	})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetSport fetches one sport by id
func (s *CatalogService) GetSport(ctx context.Context, id string) (ports.Record, error) {
	record, err := s.store.GetByID(ctx, catalog.CollectionSports, id, ports.GetOptions{})
	if err != nil {
		return nil, err
	}
	if record == nil || record.Bool(ports.FieldIsDeleted) {
		return nil, apperrors.NewNotFoundError("sport").WithDetail("id", id)
	}
	return record, nil
}

// DeleteSport soft-deletes a sport. A sport that still has active skills
// cannot be deleted; the caller must move or delete the skills first.
func (s *CatalogService) DeleteSport(ctx context.Context, id string) error {
	if _, err := s.GetSport(ctx, id); err != nil {
		return err
	}

	skillCount, err := s.store.Count(ctx, catalog.CollectionSkills, ports.QueryOptions{
		Where: []ports.WhereClause{
			{Field: catalog.FieldSportID, Operator: ports.OpEqual, Value: id},
			notDeleted(),
		},
	})
	if err != nil {
		return err
	}
	if skillCount > 0 {
		return apperrors.NewConflictError("sport still has skills attached").
			WithCode(apperrors.CodeSportHasSkills).
			WithDetails(map[string]interface{}{
				"sportId":    id,
				"skillCount": skillCount,
			})
	}

	if err := s.store.Delete(ctx, catalog.CollectionSports, id, ports.DeleteOptions{SoftDelete: true}); err != nil {
		return err
	}
	s.logger.Info("sport deleted", zap.String("sportId", id))
	return nil
}

// GetSkill fetches one skill by id
func (s *CatalogService) GetSkill(ctx context.Context, id string) (ports.Record, error) {
	record, err := s.store.GetByID(ctx, catalog.CollectionSkills, id, ports.GetOptions{})
	if err != nil {
		return nil, err
	}
	if record == nil || record.Bool(ports.FieldIsDeleted) {
		return nil, apperrors.NewNotFoundError("skill").
			WithCode(apperrors.CodeSkillNotFound).
			WithDetail("id", id)
	}
	return record, nil
}

// ListSkillsBySport returns the active skills attached to a sport
func (s *CatalogService) ListSkillsBySport(ctx context.Context, sportID string) ([]ports.Record, error) {
	result, err := s.store.Query(ctx, catalog.CollectionSkills, ports.QueryOptions{
		Where: []ports.WhereClause{
			{Field: catalog.FieldSportID, Operator: ports.OpEqual, Value: sportID},
			notDeleted(),
		},
		OrderBy: []ports.OrderClause{{Field: "name"}},
	})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}
