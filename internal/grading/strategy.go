package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

type Kind string

const (
	KindLinear          Kind = "linear"
	KindDifficultyBased Kind = "difficulty_based"
	KindCountBased      Kind = "count_based"
)

var (
	ErrUnknownStrategy = errors.New("unknown grading strategy")
	ErrInvalidConfig   = errors.New("invalid grading config")
)

var validate = validator.New()

// Strategy is a closed set of grading rules. Only the types in this package implement it.
type Strategy interface {
	Kind() Kind
	score(passed []uint, difficulties map[uint]models.DifficultyLevel) float64
}

// Linear awards the same marks for every passed question
type Linear struct {
	Marks float64 `json:"marks" validate:"gte=0"`
}

func (Linear) Kind() Kind { return KindLinear }

func (s Linear) score(passed []uint, _ map[uint]models.DifficultyLevel) float64 {
	return float64(len(passed)) * s.Marks
}

// DifficultyBased awards marks per passed question keyed by its difficulty.
// A difficulty missing from the table is worth 0.
type DifficultyBased map[models.DifficultyLevel]float64

func (DifficultyBased) Kind() Kind { return KindDifficultyBased }

func (s DifficultyBased) score(passed []uint, difficulties map[uint]models.DifficultyLevel) float64 {
	var total float64
	for _, id := range passed {
		level, ok := difficulties[id]
		if !ok {
			continue
		}
		total += s[level]
	}
	return total
}

type CountRule struct {
	Count int     `json:"count" validate:"gte=1"`
	Marks float64 `json:"marks" validate:"gte=0"`
}

// CountBased awards the marks of the highest threshold reached by the number of passed questions
type CountBased struct {
	Rules []CountRule `json:"rules" validate:"required,min=1,dive"`
}

func (CountBased) Kind() Kind { return KindCountBased }

func (s CountBased) score(passed []uint, _ map[uint]models.DifficultyLevel) float64 {
	rules := make([]CountRule, len(s.Rules))
	copy(rules, s.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Count > rules[j].Count
	})

	n := len(passed)
	for _, rule := range rules {
		if rule.Count <= n {
			return rule.Marks
		}
	}
	return 0
}

// Unknown carries a strategy name that could not be resolved. It always scores 0.
type Unknown struct {
	Name string
}

func (u Unknown) Kind() Kind { return Kind(u.Name) }

func (Unknown) score([]uint, map[uint]models.DifficultyLevel) float64 { return 0 }

// Parse decodes and validates a stored strategy. An unknown kind returns the Unknown
// variant together with ErrUnknownStrategy so callers can log and still score.
func Parse(kind string, raw []byte) (Strategy, error) {
	switch Kind(kind) {
	case KindLinear:
		var s Linear
		if err := decode(raw, &s); err != nil {
			return nil, err
		}
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return s, nil

	case KindDifficultyBased:
		s := DifficultyBased{}
		if err := decode(raw, &s); err != nil {
			return nil, err
		}
		if err := validate.Var(map[models.DifficultyLevel]float64(s), "dive,keys,oneof=easy medium hard,endkeys,gte=0"); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return s, nil

	case KindCountBased:
		var s CountBased
		if err := decode(raw, &s); err != nil {
			return nil, err
		}
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return s, nil

	default:
		return Unknown{Name: kind}, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
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
