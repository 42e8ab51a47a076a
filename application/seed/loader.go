// Package seed bulk-loads the embedded reference dataset and validates
// cross-collection referential integrity. Invoked from bootstrap routines,
// never from request-serving code.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"skillcourt-backend/application/ports"
	"skillcourt-backend/domain/catalog"
	apperrors "skillcourt-backend/pkg/errors"
)

//go:embed seed.yaml
var datasetYAML []byte

// clearPageSize bounds each clear iteration to one full batch
const clearPageSize = ports.MaxBatchOperations

// SeededEntityMap resolves human-readable seed names to generated ids during
// one seeding run. Process-local, never persisted.
type SeededEntityMap map[string]map[string]string

// Put records a name→id binding under a category
func (m SeededEntityMap) Put(category, name, id string) {
	if m[category] == nil {
		m[category] = make(map[string]string)
	}
	m[category][name] = id
}

// Get resolves a reference, reporting whether it was seeded
func (m SeededEntityMap) Get(category, name string) (string, bool) {
	id, ok := m[category][name]
	return id, ok
}

// Options tunes a SeedAll run
type Options struct {
	// Force clears all managed collections before inserting
	Force bool
}

// Result is the per-category creation report returned by SeedAll
type Result struct {
	SportsCreated       int  `json:"sportsCreated"`
	SkillsCreated       int  `json:"skillsCreated"`
	QuizzesCreated      int  `json:"quizzesCreated"`
	QuestionsCreated    int  `json:"questionsCreated"`
	AchievementsCreated int  `json:"achievementsCreated"`
	AppSettingsCreated  bool `json:"appSettingsCreated"`
}

// IntegrityReport lists every dangling reference found by
// ValidateDataIntegrity. Valid is false when Issues is non-empty.
type IntegrityReport struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// Loader seeds the catalog collections from the embedded dataset
type Loader struct {
	store    ports.DocumentStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewLoader creates a seeder over the given store
func NewLoader(store ports.DocumentStore, logger *zap.Logger) *Loader {
	return &Loader{
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// LoadDataset parses and validates the embedded dataset without touching the
// store. Definition problems surface as VALIDATION_FAILED before any insert.
func (l *Loader) LoadDataset() (*catalog.SeedDataset, error) {
	var dataset catalog.SeedDataset
	if err := yaml.Unmarshal(datasetYAML, &dataset); err != nil {
		return nil, apperrors.NewValidationError("malformed seed dataset").WithCause(err)
	}
	if err := l.validate.Struct(&dataset); err != nil {
		return nil, apperrors.NewValidationError("seed dataset failed validation").WithCause(err)
	}
	return &dataset, nil
}

// SeedAll inserts the dataset in dependency order: sports, skills, quizzes,
// questions, achievements, then the app settings singleton. Parent counters
// are bumped as children land. With opts.Force the managed collections are
// cleared first; without it a non-empty store refuses to reseed.
func (l *Loader) SeedAll(ctx context.Context, opts Options) (*Result, error) {
	dataset, err := l.LoadDataset()
	if err != nil {
		return nil, err
	}

	if opts.Force {
		if err := l.ClearAllData(ctx); err != nil {
			return nil, err
		}
	} else {
		n, err := l.store.Count(ctx, catalog.CollectionSports, ports.QueryOptions{})
		if err != nil {
			return nil, l.seedErr("checking existing data", err)
		}
		if n > 0 {
			return nil, apperrors.NewConflictError("store already seeded; use force to reseed").
				WithCode(apperrors.CodeSeedingFailed)
		}
	}

	entities := make(SeededEntityMap)
	result := &Result{}

	for _, sport := range dataset.Sports {
		record, err := l.store.Create(ctx, catalog.CollectionSports, ports.Record{
			"name":                  sport.Name,
			"description":           sport.Description,
			"icon":                  sport.Icon,
			"categories":            sport.Categories,
			catalog.FieldSkillCount: float64(0),
			catalog.FieldQuizCount:  float64(0),
		})
		if err != nil {
			return result, l.seedErr(fmt.Sprintf("sport %q", sport.Name), err)
		}
		entities.Put(catalog.CollectionSports, sport.Name, record.ID())
		result.SportsCreated++
	}

	for _, skill := range dataset.Skills {
		sportID, ok := entities.Get(catalog.CollectionSports, skill.Sport)
		if !ok {
			return result, l.danglingSeedRef("skill", skill.Name, "sport", skill.Sport)
		}
		record, err := l.store.Create(ctx, catalog.CollectionSkills, ports.Record{
			"name":                     skill.Name,
			catalog.FieldSportID:       sportID,
			"description":              skill.Description,
			"difficulty":               skill.Difficulty,
			"category":                 skill.Category,
			"drills":                   skill.Drills,
			catalog.FieldQuizCount:     float64(0),
			catalog.FieldQuestionCount: float64(0),
		})
		if err != nil {
			return result, l.seedErr(fmt.Sprintf("skill %q", skill.Name), err)
		}
		entities.Put(catalog.CollectionSkills, skill.Name, record.ID())
		result.SkillsCreated++

		if err := l.store.IncrementField(ctx, catalog.CollectionSports, sportID, catalog.FieldSkillCount, 1); err != nil {
			return result, l.seedErr(fmt.Sprintf("skill counter for sport %q", skill.Sport), err)
		}
	}

	for _, quiz := range dataset.Quizzes {
		skillID, ok := entities.Get(catalog.CollectionSkills, quiz.Skill)
		if !ok {
			return result, l.danglingSeedRef("quiz", quiz.Title, "skill", quiz.Skill)
		}
		sportID, ok := entities.Get(catalog.CollectionSports, quiz.Sport)
		if !ok {
			return result, l.danglingSeedRef("quiz", quiz.Title, "sport", quiz.Sport)
		}
		record, err := l.store.Create(ctx, catalog.CollectionQuizzes, ports.Record{
			"title":                    quiz.Title,
			catalog.FieldSkillID:       skillID,
			catalog.FieldSportID:       sportID,
			"description":              quiz.Description,
			"passScore":                float64(quiz.PassScore),
			catalog.FieldQuestionCount: float64(0),
		})
		if err != nil {
			return result, l.seedErr(fmt.Sprintf("quiz %q", quiz.Title), err)
		}
		entities.Put(catalog.CollectionQuizzes, quiz.Title, record.ID())
		result.QuizzesCreated++

		if err := l.store.IncrementField(ctx, catalog.CollectionSkills, skillID, catalog.FieldQuizCount, 1); err != nil {
			return result, l.seedErr(fmt.Sprintf("quiz counter for skill %q", quiz.Skill), err)
		}
		if err := l.store.IncrementField(ctx, catalog.CollectionSports, sportID, catalog.FieldQuizCount, 1); err != nil {
			return result, l.seedErr(fmt.Sprintf("quiz counter for sport %q", quiz.Sport), err)
		}
	}

	for i, question := range dataset.Questions {
		quizID, ok := entities.Get(catalog.CollectionQuizzes, question.Quiz)
		if !ok {
			return result, l.danglingSeedRef("question", fmt.Sprintf("#%d", i+1), "quiz", question.Quiz)
		}
		choices := make([]interface{}, len(question.Choices))
		for j, c := range question.Choices {
			choices[j] = c
		}
		_, err := l.store.Create(ctx, catalog.CollectionQuizQuestions, ports.Record{
			catalog.FieldQuizID: quizID,
			"prompt":            question.Prompt,
			"choices":           choices,
			"answerIndex":       float64(question.AnswerIndex),
			"explanation":       question.Explanation,
		})
		if err != nil {
			return result, l.seedErr(fmt.Sprintf("question %d", i+1), err)
		}
		result.QuestionsCreated++

		if err := l.store.IncrementField(ctx, catalog.CollectionQuizzes, quizID, catalog.FieldQuestionCount, 1); err != nil {
			return result, l.seedErr(fmt.Sprintf("question counter for quiz %q", question.Quiz), err)
		}
	}

	for _, achievement := range dataset.Achievements {
		_, err := l.store.Create(ctx, catalog.CollectionAchievements, ports.Record{
			"name":        achievement.Name,
			"description": achievement.Description,
			"icon":        achievement.Icon,
			"points":      float64(achievement.Points),
		})
		if err != nil {
			return result, l.seedErr(fmt.Sprintf("achievement %q", achievement.Name), err)
		}
		result.AchievementsCreated++
	}

	if err := l.seedAppSettings(ctx, dataset.AppSettings); err != nil {
		return result, err
	}
	result.AppSettingsCreated = true

	l.logger.Info("seeding completed",
		zap.Int("sports", result.SportsCreated),
		zap.Int("skills", result.SkillsCreated),
		zap.Int("quizzes", result.QuizzesCreated),
		zap.Int("questions", result.QuestionsCreated),
		zap.Int("achievements", result.AchievementsCreated),
	)
	return result, nil
}

// seedAppSettings writes the singleton under its fixed id, replacing any
// existing record's fields.
func (l *Loader) seedAppSettings(ctx context.Context, settings catalog.SeedAppSettings) error {
	data := ports.Record{
		"maintenanceMode": settings.MaintenanceMode,
		"minAppVersion":   settings.MinAppVersion,
		"supportEmail":    settings.SupportEmail,
	}

	exists, err := l.store.Exists(ctx, catalog.CollectionAppSettings, catalog.AppSettingsID)
	if err != nil {
		return l.seedErr("app settings lookup", err)
	}
	if exists {
		if _, err := l.store.Update(ctx, catalog.CollectionAppSettings, catalog.AppSettingsID, data); err != nil {
			return l.seedErr("app settings update", err)
		}
		return nil
	}

	err = l.store.BatchWrite(ctx, []ports.BatchOperation{{
		Type:       ports.BatchCreate,
		Collection: catalog.CollectionAppSettings,
		ID:         catalog.AppSettingsID,
		Data:       data,
	}})
	if err != nil {
		return l.seedErr("app settings create", err)
	}
	return nil
}

// ValidateDataIntegrity re-reads the catalog and checks every reference field
// against the actual parent id set. Every dangling reference becomes one
// issue string; the check never fails fast, so the caller sees the full list.
func (l *Loader) ValidateDataIntegrity(ctx context.Context) (*IntegrityReport, error) {
	sportIDs, err := l.collectIDs(ctx, catalog.CollectionSports)
	if err != nil {
		return nil, err
	}
	skillIDs, err := l.collectIDs(ctx, catalog.CollectionSkills)
	if err != nil {
		return nil, err
	}
	quizIDs, err := l.collectIDs(ctx, catalog.CollectionQuizzes)
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{Valid: true, Issues: []string{}}
	flag := func(format string, args ...interface{}) {
		report.Valid = false
		report.Issues = append(report.Issues, fmt.Sprintf(format, args...))
	}

	skills, err := l.store.Query(ctx, catalog.CollectionSkills, ports.QueryOptions{})
	if err != nil {
		return nil, err
	}
	for _, skill := range skills.Items {
		if ref := skill.String(catalog.FieldSportID); !sportIDs[ref] {
			flag("skill %q (%s) references missing sport %q", skill.String("name"), skill.ID(), ref)
		}
	}

	quizzes, err := l.store.Query(ctx, catalog.CollectionQuizzes, ports.QueryOptions{})
	if err != nil {
		return nil, err
	}
	for _, quiz := range quizzes.Items {
		if ref := quiz.String(catalog.FieldSkillID); !skillIDs[ref] {
			flag("quiz %q (%s) references missing skill %q", quiz.String("title"), quiz.ID(), ref)
		}
		if ref := quiz.String(catalog.FieldSportID); !sportIDs[ref] {
			flag("quiz %q (%s) references missing sport %q", quiz.String("title"), quiz.ID(), ref)
		}
	}

	questions, err := l.store.Query(ctx, catalog.CollectionQuizQuestions, ports.QueryOptions{})
	if err != nil {
		return nil, err
	}
	for _, question := range questions.Items {
		if ref := question.String(catalog.FieldQuizID); !quizIDs[ref] {
			flag("question %s references missing quiz %q", question.ID(), ref)
		}
	}

	return report, nil
}

// ClearAllData empties every managed collection, one bounded batch per page.
// Collections are cleared child-first; the operation is not transactional
// across collections.
func (l *Loader) ClearAllData(ctx context.Context) error {
	for _, collection := range catalog.ManagedCollections {
		for {
			page, err := l.store.Query(ctx, collection, ports.QueryOptions{Limit: clearPageSize})
			if err != nil {
				return apperrors.NewInternalError("failed to clear data").
					WithCause(err).
					WithCode(apperrors.CodeClearDataFailed).
					WithDetail("collection", collection)
			}
			if len(page.Items) == 0 {
				break
			}

			ops := make([]ports.BatchOperation, 0, len(page.Items))
			for _, record := range page.Items {
				ops = append(ops, ports.BatchOperation{
					Type:       ports.BatchDelete,
					Collection: collection,
					ID:         record.ID(),
				})
			}
			if err := l.store.BatchWrite(ctx, ops); err != nil {
				return apperrors.NewInternalError("failed to clear data").
					WithCause(err).
					WithCode(apperrors.CodeClearDataFailed).
					WithDetail("collection", collection)
			}
		}
		l.logger.Info("collection cleared", zap.String("collection", collection))
	}
	return nil
}

func (l *Loader) collectIDs(ctx context.Context, collection string) (map[string]bool, error) {
	result, err := l.store.Query(ctx, collection, ports.QueryOptions{})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(result.Items))
	for _, record := range result.Items {
		ids[record.ID()] = true
	}
	return ids, nil
}

func (l *Loader) seedErr(step string, err error) error {
	return apperrors.NewInternalError("seeding failed at "+step).
		WithCause(err).
		WithCode(apperrors.CodeSeedingFailed)
}

func (l *Loader) danglingSeedRef(kind, name, refKind, ref string) error {
	return apperrors.NewValidationError(
		fmt.Sprintf("%s %q references unknown %s %q", kind, name, refKind, ref)).
		WithCode(apperrors.CodeSeedingFailed)
}
