package grading

import (
	"errors"
	"log/slog"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// Score applies strategy to the distinct passed question ids. It has no side effects.
func Score(strategy Strategy, passed []uint, difficulties map[uint]models.DifficultyLevel) float64 {
	if strategy == nil {
		return 0
	}
	return strategy.score(distinct(passed), difficulties)
}

// Engine resolves stored strategy definitions and scores them, logging
// anything that cannot be resolved instead of failing the caller
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// ScoreExam scores passed question ids with the exam's configured strategy
func (e *Engine) ScoreExam(exam *models.Exam, passed []uint, difficulties map[uint]models.DifficultyLevel) float64 {
	strategy, err := Parse(exam.GradingStrategy, exam.GradingConfig)
	if err != nil {
		if errors.Is(err, ErrUnknownStrategy) {
			e.logger.Warn("Unknown grading strategy, scoring 0",
				"exam_id", exam.ID,
				"strategy", exam.GradingStrategy)
		} else {
			e.logger.Error("Invalid grading config, scoring 0",
				"exam_id", exam.ID,
				"strategy", exam.GradingStrategy,
				"error", err)
		}
		return 0
	}
	return Score(strategy, passed, difficulties)
}

func distinct(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
