package catalog

// Logical collections the platform stores. Each is keyed by an opaque
// generated id.
const (
	CollectionSports         = "sports"
	CollectionSkills         = "skills"
	CollectionQuizzes        = "quizzes"
	CollectionQuizQuestions  = "quiz_questions"
	CollectionAchievements   = "achievements"
	CollectionAppSettings    = "app_settings"
	CollectionUsers          = "users"
	CollectionMigrations     = "migrations"
	CollectionMigrationState = "migration_state"
)

// ManagedCollections lists the collections owned by the seeder, in the order
// they are cleared during a reset. Migration bookkeeping collections are
// intentionally excluded.
var ManagedCollections = []string{
	CollectionQuizQuestions,
	CollectionQuizzes,
	CollectionSkills,
	CollectionSports,
	CollectionAchievements,
	CollectionAppSettings,
}

// Foreign-key-like reference fields between collections.
const (
	FieldSportID = "sportId"
	FieldSkillID = "skillId"
	FieldQuizID  = "quizId"
)

// Counter fields bumped as children are created.
const (
	FieldSkillCount    = "skillCount"
	FieldQuizCount     = "quizCount"
	FieldQuestionCount = "questionCount"
)

// AppSettingsID is the fixed id of the singleton app_settings record
const AppSettingsID = "app-settings"

// MigrationStateID is the fixed id of the singleton migration_state record
const MigrationStateID = "migration-state"
