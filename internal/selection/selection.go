package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

type Kind string

const (
	KindRandom        Kind = "random"
	KindDifficultyMix Kind = "difficulty_mix"
	KindFixed         Kind = "fixed"
)

var (
	ErrUnknownStrategy       = errors.New("unknown selection strategy")
	ErrInvalidConfig         = errors.New("invalid selection config")
	ErrInsufficientQuestions = errors.New("question bank has too few eligible questions")
)

var validate = validator.New()

// Candidate is the minimal view of a bank question needed to select from it
type Candidate struct {
	ID         uint
	Difficulty models.DifficultyLevel
}

// Strategy picks a fixed, ordered set of question ids from the bank
type Strategy interface {
	Kind() Kind
	Select(bank []Candidate, rng *rand.Rand) ([]uint, error)
}

// Random is a uniform sample without replacement, independent of difficulty
type Random struct {
	Count int `json:"count" validate:"gte=1"`
}

func (Random) Kind() Kind { return KindRandom }

func (s Random) Select(bank []Candidate, rng *rand.Rand) ([]uint, error) {
	ids := make([]uint, len(bank))
	for i, c := range bank {
		ids[i] = c.ID
	}
	return sample(ids, s.Count, rng)
}

// DifficultyMix samples a number of questions from each difficulty, easy first
type DifficultyMix struct {
	Easy   int `json:"easy" validate:"gte=0"`
	Medium int `json:"medium" validate:"gte=0"`
	Hard   int `json:"hard" validate:"gte=0"`
}

func (DifficultyMix) Kind() Kind { return KindDifficultyMix }

func (s DifficultyMix) Select(bank []Candidate, rng *rand.Rand) ([]uint, error) {
	if s.Easy+s.Medium+s.Hard == 0 {
		return nil, fmt.Errorf("%w: difficulty_mix selects no questions", ErrInvalidConfig)
	}

	byLevel := map[models.DifficultyLevel][]uint{}
	for _, c := range bank {
		byLevel[c.Difficulty] = append(byLevel[c.Difficulty], c.ID)
	}

	var out []uint
	for _, part := range []struct {
		level models.DifficultyLevel
		n     int
	}{
		{models.DifficultyEasy, s.Easy},
		{models.DifficultyMedium, s.Medium},
		{models.DifficultyHard, s.Hard},
	} {
		picked, err := sample(byLevel[part.level], part.n, rng)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", part.level, err)
		}
		out = append(out, picked...)
	}
	return out, nil
}

// Fixed assigns the same listed questions to every user
type Fixed struct {
	QuestionIDs []uint `json:"question_ids" validate:"required,min=1,unique"`
}

func (Fixed) Kind() Kind { return KindFixed }

func (s Fixed) Select(bank []Candidate, _ *rand.Rand) ([]uint, error) {
	present := make(map[uint]struct{}, len(bank))
	for _, c := range bank {
		present[c.ID] = struct{}{}
	}
	for _, id := range s.QuestionIDs {
		if _, ok := present[id]; !ok {
			return nil, fmt.Errorf("%w: question %d is not in the bank", ErrInsufficientQuestions, id)
		}
	}
	out := make([]uint, len(s.QuestionIDs))
	copy(out, s.QuestionIDs)
	return out, nil
}

// ForExam resolves the exam's selection strategy. An empty strategy
// defaults to a random sample of the exam's question count.
func ForExam(exam *models.Exam) (Strategy, error) {
	if exam.SelectionStrategy == "" {
		s := Random{Count: exam.QuestionCount}
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("%w: question_count must be at least 1", ErrInvalidConfig)
		}
		return s, nil
	}
	return Parse(exam.SelectionStrategy, exam.SelectionConfig)
}

// Parse decodes and validates a stored selection strategy
func Parse(kind string, raw []byte) (Strategy, error) {
	var s Strategy
	switch Kind(kind) {
	case KindRandom:
		var r Random
		if err := decode(raw, &r); err != nil {
			return nil, err
		}
		s = r
	case KindDifficultyMix:
		var d DifficultyMix
		if err := decode(raw, &d); err != nil {
			return nil, err
		}
		s = d
	case KindFixed:
		var f Fixed
		if err := decode(raw, &f); err != nil {
			return nil, err
		}
		s = f
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}

	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return s, nil
}

func decode(raw []byte, dest any) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// sample draws n distinct ids uniformly. ids is not modified.
func sample(ids []uint, n int, rng *rand.Rand) ([]uint, error) {
	if n == 0 {
		return nil, nil
	}
	if len(ids) < n {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientQuestions, n, len(ids))
	}

	pool := make([]uint, len(ids))
	copy(pool, ids)

	// partial Fisher-Yates
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n], nil
}
