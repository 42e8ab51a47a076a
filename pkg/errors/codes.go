package errors

// Stable error codes shared with callers of the data layer. These strings are
// part of the public contract and must not change between releases.
const (
	CodeMigrationStateNotFound   = "MIGRATION_STATE_NOT_FOUND"
	CodeMigrationExecutionFailed = "MIGRATION_EXECUTION_FAILED"
	CodeRollbackExecutionFailed  = "ROLLBACK_EXECUTION_FAILED"
	CodeSeedingFailed            = "SEEDING_FAILED"
	CodeClearDataFailed          = "CLEAR_DATA_FAILED"
	CodeValidationFailed         = "VALIDATION_FAILED"
	CodeSportHasSkills           = "SPORT_HAS_SKILLS"
	CodeSkillNotFound            = "SKILL_NOT_FOUND"
)
