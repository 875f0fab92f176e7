// Package validator checks learner answers against the accepted-answer set
// of a reviewable item. Validators are pure and safe for concurrent use;
// one variant is registered per content type.
package validator

import (
	"errors"
	"fmt"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

var ErrEmptyAnswer = errors.New("validator: empty answer")

// Context carries optional information about the surrounding question.
// RejectedAnswers are strings that are valid words in their own right but
// belong to other items (e.g. the displayed distractors); an answer matching
// one of them must fail even if it sits within typo distance of the correct
// answer.
type Context struct {
	Mode            entities.ReviewMode
	RejectedAnswers []string
	Metadata        map[string]string
}

// Validator compares one answer against the accepted set.
type Validator interface {
	Validate(answer string, accepted []string, vctx Context) (entities.ValidationResult, error)
}

// Set dispatches to a validator by content type, falling back to the default
// typo-tolerant validator for unregistered types.
type Set struct {
	byType   map[entities.ContentType]Validator
	fallback Validator
}

// NewSet creates a Set with the standard per-type validators: exact matching
// for kana, structural comparison for writing-oriented kanji, typo-tolerant
// matching for everything else.
func NewSet() *Set {
	typo := NewTypoTolerant(0.85)
	return &Set{
		byType: map[entities.ContentType]Validator{
			entities.ContentKana:       Exact{},
			entities.ContentKanji:      NewStructural(typo),
			entities.ContentVocabulary: typo,
			entities.ContentSentence:   typo,
			entities.ContentCustom:     typo,
		},
		fallback: typo,
	}
}

// Register replaces the validator for a content type.
func (s *Set) Register(ctype entities.ContentType, v Validator) {
	s.byType[ctype] = v
}

// Validate checks the answer for an item of the given content type.
func (s *Set) Validate(ctype entities.ContentType, answer string, accepted []string, vctx Context) (entities.ValidationResult, error) {
	if Normalize(answer) == "" {
		return entities.ValidationResult{}, ErrEmptyAnswer
	}
	if len(accepted) == 0 {
		return entities.ValidationResult{}, errors.New("validator: no accepted answers")
	}
	v, ok := s.byType[ctype]
	if !ok {
		v = s.fallback
	}
	return v.Validate(answer, accepted, vctx)
}

// Exact accepts only a normalized exact match against any accepted answer.
type Exact struct{}

func (Exact) Validate(answer string, accepted []string, _ Context) (entities.ValidationResult, error) {
	norm := Normalize(answer)
	for _, want := range accepted {
		if norm == Normalize(want) {
			return entities.ValidationResult{
				Correct:        true,
				Score:          1.0,
				Feedback:       "Correct",
				ExpectedAnswer: want,
			}, nil
		}
	}
	return entities.ValidationResult{
		Feedback:       "Incorrect",
		ExpectedAnswer: accepted[0],
	}, nil
}

// TypoTolerant accepts exact matches and near-misses whose normalized
// similarity meets the threshold.
type TypoTolerant struct {
	threshold float64
}

// NewTypoTolerant creates a typo-tolerant validator with the given
// similarity threshold in (0, 1].
func NewTypoTolerant(threshold float64) TypoTolerant {
	return TypoTolerant{threshold: threshold}
}

func (v TypoTolerant) Validate(answer string, accepted []string, vctx Context) (entities.ValidationResult, error) {
	norm := Normalize(answer)

	// Exact match against any accepted form wins outright.
	for _, want := range accepted {
		if norm == Normalize(want) {
			return entities.ValidationResult{
				Correct:        true,
				Score:          1.0,
				Feedback:       "Correct",
				ExpectedAnswer: want,
			}, nil
		}
	}

	// An answer that is itself a valid-but-different word is wrong, not a typo.
	for _, rejected := range vctx.RejectedAnswers {
		if norm == Normalize(rejected) {
			return entities.ValidationResult{
				Feedback:       "Incorrect",
				ExpectedAnswer: accepted[0],
			}, nil
		}
	}

	best := 0.0
	bestAnswer := accepted[0]
	for _, want := range accepted {
		if sim := Similarity(norm, Normalize(want)); sim > best {
			best = sim
			bestAnswer = want
		}
	}

	if best >= v.threshold {
		return entities.ValidationResult{
			Correct:        true,
			Score:          best,
			Feedback:       fmt.Sprintf("Did you mean %q?", bestAnswer),
			ExpectedAnswer: bestAnswer,
			NearMiss:       true,
		}, nil
	}

	return entities.ValidationResult{
		Score:          best,
		Feedback:       "Incorrect",
		ExpectedAnswer: accepted[0],
	}, nil
}

// Structural compares writing-mode answers by their structural components
// (radicals) when the item carries them, falling back to the wrapped
// validator for other modes.
type Structural struct {
	fallback Validator
}

// NewStructural creates a Structural validator delegating non-writing modes
// to the given fallback.
func NewStructural(fallback Validator) Structural {
	return Structural{fallback: fallback}
}

func (v Structural) Validate(answer string, accepted []string, vctx Context) (entities.ValidationResult, error) {
	if vctx.Mode != entities.ModeWriting {
		return v.fallback.Validate(answer, accepted, vctx)
	}

	// Writing mode: the answer is the produced character; exact match first.
	for _, want := range accepted {
		if answer == want {
			return entities.ValidationResult{
				Correct:        true,
				Score:          1.0,
				Feedback:       "Correct",
				ExpectedAnswer: want,
			}, nil
		}
	}

	// Partial credit by component overlap when the item declares components.
	components, ok := vctx.Metadata["components"]
	if !ok {
		return entities.ValidationResult{
			Feedback:       "Incorrect",
			ExpectedAnswer: accepted[0],
		}, nil
	}

	score := componentOverlap(answer, components)
	return entities.ValidationResult{
		Correct:        score >= 1.0,
		Score:          score,
		Feedback:       fmt.Sprintf("Matched %.0f%% of components", score*100),
		ExpectedAnswer: accepted[0],
	}, nil
}

// componentOverlap scores how many expected components appear in the answer.
func componentOverlap(answer, components string) float64 {
	expected := []rune(components)
	if len(expected) == 0 {
		return 0
	}
	present := make(map[rune]bool, len(answer))
	for _, r := range answer {
		present[r] = true
	}
	matched := 0
	for _, r := range expected {
		if present[r] {
			matched++
		}
	}
	return float64(matched) / float64(len(expected))
}
