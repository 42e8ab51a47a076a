package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
	"skillcourt-backend/domain/catalog"
	"skillcourt-backend/infrastructure/persistence/memory"
	apperrors "skillcourt-backend/pkg/errors"
)

func newTestLoader() (*Loader, *memory.DocumentStore) {
	store := memory.NewDocumentStore(zap.NewNop())
	return NewLoader(store, zap.NewNop()), store
}

func TestLoadDatasetParsesAndValidates(t *testing.T) {
	loader, _ := newTestLoader()

	dataset, err := loader.LoadDataset()
	require.NoError(t, err)
	assert.Len(t, dataset.Sports, 6)
	assert.Len(t, dataset.Skills, 3)
	assert.Len(t, dataset.Quizzes, 2)
	assert.Len(t, dataset.Questions, 4)
	assert.Len(t, dataset.Achievements, 6)
	assert.NotEmpty(t, dataset.AppSettings.MinAppVersion)
}

func TestSeedAllCreatesFullDataset(t *testing.T) {
	loader, store := newTestLoader()
	ctx := context.Background()

	result, err := loader.SeedAll(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 6, result.SportsCreated)
	assert.Equal(t, 3, result.SkillsCreated)
	assert.Equal(t, 2, result.QuizzesCreated)
	assert.Equal(t, 4, result.QuestionsCreated)
	assert.Equal(t, 6, result.AchievementsCreated)
	assert.True(t, result.AppSettingsCreated)

	settings, err := store.GetByID(ctx, catalog.CollectionAppSettings, catalog.AppSettingsID, ports.GetOptions{})
	require.NoError(t, err)
	require.NotNil(t, settings, "singleton lands under its fixed id")
	assert.Equal(t, "support@skillcourt.app", settings.String("supportEmail"))
}

func TestSeedAllWiresReferencesAndCounters(t *testing.T) {
	loader, store := newTestLoader()
	ctx := context.Background()

	_, err := loader.SeedAll(ctx, Options{})
	require.NoError(t, err)

	sports, err := store.Query(ctx, catalog.CollectionSports, ports.QueryOptions{
		Where: []ports.WhereClause{{Field: "name", Operator: ports.OpEqual, Value: "Tennis"}},
	})
	require.NoError(t, err)
	require.Len(t, sports.Items, 1)
	tennis := sports.Items[0]

	// All three skills and both quizzes in the dataset hang off Tennis.
	assert.Equal(t, float64(3), tennis.Float(catalog.FieldSkillCount))
	assert.Equal(t, float64(2), tennis.Float(catalog.FieldQuizCount))

	skills, err := store.Query(ctx, catalog.CollectionSkills, ports.QueryOptions{})
	require.NoError(t, err)
	for _, skill := range skills.Items {
		assert.Equal(t, tennis.ID(), skill.String(catalog.FieldSportID),
			"skill %q wired to its sport's generated id", skill.String("name"))
	}

	quizzes, err := store.Query(ctx, catalog.CollectionQuizzes, ports.QueryOptions{})
	require.NoError(t, err)
	for _, quiz := range quizzes.Items {
		assert.Equal(t, float64(2), quiz.Float(catalog.FieldQuestionCount),
			"quiz %q counts its questions", quiz.String("title"))
	}
}

func TestSeedAllRefusesNonEmptyStoreWithoutForce(t *testing.T) {
	loader, _ := newTestLoader()
	ctx := context.Background()

	_, err := loader.SeedAll(ctx, Options{})
	require.NoError(t, err)

	_, err = loader.SeedAll(ctx, Options{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSeedingFailed))
}

func TestSeedAllForceReseedsCleanly(t *testing.T) {
	loader, store := newTestLoader()
	ctx := context.Background()

	_, err := loader.SeedAll(ctx, Options{})
	require.NoError(t, err)

	result, err := loader.SeedAll(ctx, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 6, result.SportsCreated)

	n, err := store.Count(ctx, catalog.CollectionSports, ports.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 6, n, "force run does not duplicate data")
}

func TestValidateDataIntegrityPassesAfterSeeding(t *testing.T) {
	loader, _ := newTestLoader()
	ctx := context.Background()

	_, err := loader.SeedAll(ctx, Options{})
	require.NoError(t, err)

	report, err := loader.ValidateDataIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
}

func TestValidateDataIntegrityNamesEveryDanglingReference(t *testing.T) {
	loader, store := newTestLoader()
	ctx := context.Background()

	_, err := loader.SeedAll(ctx, Options{})
	require.NoError(t, err)

	orphanSkill, err := store.Create(ctx, catalog.CollectionSkills, ports.Record{
		"name":               "Ghost Skill",
		catalog.FieldSportID: "no-such-sport",
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, catalog.CollectionQuizQuestions, ports.Record{
		catalog.FieldQuizID: "no-such-quiz",
		"prompt":            "orphan",
	})
	require.NoError(t, err)

	report, err := loader.ValidateDataIntegrity(ctx)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 2, "every dangling reference is collected, not just the first")

	found := false
	for _, issue := range report.Issues {
		if strings.Contains(issue, "Ghost Skill") &&
			strings.Contains(issue, orphanSkill.ID()) &&
			strings.Contains(issue, "no-such-sport") {
			found = true
		}
	}
	assert.True(t, found, "issue names the offending skill: %v", report.Issues)
}

func TestClearAllDataEmptiesManagedCollections(t *testing.T) {
	loader, store := newTestLoader()
	ctx := context.Background()

	_, err := loader.SeedAll(ctx, Options{})
	require.NoError(t, err)

	require.NoError(t, loader.ClearAllData(ctx))

	for _, collection := range catalog.ManagedCollections {
		n, err := store.Count(ctx, collection, ports.QueryOptions{})
		require.NoError(t, err)
		assert.Zero(t, n, "collection %s is empty after clear", collection)
	}
}
