package catalog

// Seed definition types. These mirror the embedded YAML dataset; references
// between them use human-readable names which the seeder resolves to
// generated ids at insert time.

// SeedSport is a sport in the skill catalog
type SeedSport struct {
	Name        string   `yaml:"name" validate:"required"`
	Description string   `yaml:"description" validate:"required"`
	Icon        string   `yaml:"icon"`
	Categories  []string `yaml:"categories" validate:"min=1,dive,required"`
}

// SeedSkill is a trainable skill belonging to a sport
type SeedSkill struct {
	Name        string   `yaml:"name" validate:"required"`
	Sport       string   `yaml:"sport" validate:"required"`
	Description string   `yaml:"description" validate:"required"`
	Difficulty  string   `yaml:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	Category    string   `yaml:"category"`
	Drills      []string `yaml:"drills"`
}

// SeedQuiz is a knowledge check attached to a skill
type SeedQuiz struct {
	Title       string `yaml:"title" validate:"required"`
	Skill       string `yaml:"skill" validate:"required"`
	Sport       string `yaml:"sport" validate:"required"`
	Description string `yaml:"description"`
	PassScore   int    `yaml:"passScore" validate:"gte=0,lte=100"`
}

// SeedQuestion is a single quiz question
type SeedQuestion struct {
	Quiz        string   `yaml:"quiz" validate:"required"`
	Prompt      string   `yaml:"prompt" validate:"required"`
	Choices     []string `yaml:"choices" validate:"min=2,dive,required"`
	AnswerIndex int      `yaml:"answerIndex" validate:"gte=0"`
	Explanation string   `yaml:"explanation"`
}

// SeedAchievement is an unlockable badge
type SeedAchievement struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description" validate:"required"`
	Icon        string `yaml:"icon"`
	Points      int    `yaml:"points" validate:"gte=0"`
}

// SeedAppSettings is the singleton application settings record
type SeedAppSettings struct {
	MaintenanceMode bool   `yaml:"maintenanceMode"`
	MinAppVersion   string `yaml:"minAppVersion" validate:"required"`
	SupportEmail    string `yaml:"supportEmail" validate:"required,email"`
}

// SeedDataset is the full embedded reference dataset
type SeedDataset struct {
	Sports       []SeedSport       `yaml:"sports" validate:"dive"`
	Skills       []SeedSkill       `yaml:"skills" validate:"dive"`
	Quizzes      []SeedQuiz        `yaml:"quizzes" validate:"dive"`
	Questions    []SeedQuestion    `yaml:"questions" validate:"dive"`
	Achievements []SeedAchievement `yaml:"achievements" validate:"dive"`
	AppSettings  SeedAppSettings   `yaml:"appSettings"`
}
