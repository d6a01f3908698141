package models

import "time"

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Question is read-only bank content for this service
type Question struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Title         string          `json:"title" gorm:"not null;size:200"`
	Statement     string          `json:"statement" gorm:"type:text;not null"`
	Difficulty    DifficultyLevel `json:"difficulty" gorm:"not null;index;default:easy"`
	TimeLimitMs   int             `json:"time_limit_ms" gorm:"default:2000"`
	MemoryLimitMb int             `json:"memory_limit_mb" gorm:"default:256"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	TestCases []TestCase `json:"test_cases,omitempty" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

type TestCase struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	QuestionID     uint   `json:"question_id" gorm:"not null;index"`
	Input          string `json:"input" gorm:"type:text"`
	ExpectedOutput string `json:"expected_output" gorm:"type:text"`
	IsHidden       bool   `json:"is_hidden" gorm:"index"`
	Order          int    `json:"order" gorm:"default:0"`
}

func (TestCase) TableName() string {
	return "test_cases"
}
