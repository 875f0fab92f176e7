package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello", "hello"},
		{"  spaced   out  ", "spaced out"},
		{"don't!", "dont"},
		{"Tōkyō", "tōkyō"},
		{"a,b.c", "abc"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("water", "water"))
	assert.Equal(t, 0.0, Similarity("", "water"))
	// One edit over five runes.
	assert.InDelta(t, 0.8, Similarity("water", "wader"), 1e-9)
}

func TestExactValidator(t *testing.T) {
	v := Exact{}

	res, err := v.Validate("ka", []string{"ka"}, Context{})
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 1.0, res.Score)

	// Near-misses are not accepted for kana-style answers.
	res, err = v.Validate("kaa", []string{"ka"}, Context{})
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "ka", res.ExpectedAnswer)
}

func TestTypoTolerantAcceptsNearMiss(t *testing.T) {
	v := NewTypoTolerant(0.85)

	res, err := v.Validate("restauraunt", []string{"restaurant"}, Context{})
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.True(t, res.NearMiss)
	assert.GreaterOrEqual(t, res.Score, 0.85)
	assert.Contains(t, res.Feedback, "Did you mean")
}

func TestTypoTolerantRejectsBelowThreshold(t *testing.T) {
	v := NewTypoTolerant(0.85)

	res, err := v.Validate("cat", []string{"restaurant"}, Context{})
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.False(t, res.NearMiss)
	assert.Less(t, res.Score, 0.85)
}

func TestTypoTolerantExactBeatsNearMiss(t *testing.T) {
	v := NewTypoTolerant(0.85)

	res, err := v.Validate("To Eat", []string{"to eat", "to consume"}, Context{})
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.False(t, res.NearMiss)
	assert.Equal(t, 1.0, res.Score)
}

func TestTypoTolerantRejectedAnswerFails(t *testing.T) {
	v := NewTypoTolerant(0.85)

	// "biyouin" (hair salon) is within typo distance of "byouin" (hospital)
	// but is a real word shown as a distractor; it must not pass as a typo.
	res, err := v.Validate("biyouin", []string{"byouin"}, Context{
		RejectedAnswers: []string{"biyouin"},
	})
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.False(t, res.NearMiss)

	// Without the rejection it would have been accepted as a near-miss.
	res, err = v.Validate("biyouin", []string{"byouin"}, Context{})
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.True(t, res.NearMiss)
}

func TestStructuralWritingMode(t *testing.T) {
	v := NewStructural(NewTypoTolerant(0.85))
	vctx := Context{
		Mode:     entities.ModeWriting,
		Metadata: map[string]string{"components": "日月"},
	}

	res, err := v.Validate("明", []string{"明"}, vctx)
	require.NoError(t, err)
	assert.True(t, res.Correct)

	// Partial component overlap scores proportionally but is not correct.
	res, err = v.Validate("日", []string{"明"}, vctx)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.InDelta(t, 0.5, res.Score, 1e-9)
}

func TestStructuralDelegatesOtherModes(t *testing.T) {
	v := NewStructural(NewTypoTolerant(0.85))

	res, err := v.Validate("brightt", []string{"bright"}, Context{Mode: entities.ModeRecognition})
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.True(t, res.NearMiss)
}

func TestSetDispatch(t *testing.T) {
	s := NewSet()

	// Kana goes through exact matching.
	res, err := s.Validate(entities.ContentKana, "kaa", []string{"ka"}, Context{})
	require.NoError(t, err)
	assert.False(t, res.Correct)

	// Vocabulary tolerates typos.
	res, err = s.Validate(entities.ContentVocabulary, "restauraunt", []string{"restaurant"}, Context{})
	require.NoError(t, err)
	assert.True(t, res.Correct)

	// Unregistered types fall back to typo tolerance.
	res, err = s.Validate(entities.ContentType("grammar"), "restauraunt", []string{"restaurant"}, Context{})
	require.NoError(t, err)
	assert.True(t, res.Correct)
}

func TestSetEmptyAnswer(t *testing.T) {
	s := NewSet()

	_, err := s.Validate(entities.ContentVocabulary, "   ", []string{"water"}, Context{})
	assert.ErrorIs(t, err, ErrEmptyAnswer)

	_, err = s.Validate(entities.ContentVocabulary, "water", nil, Context{})
	assert.Error(t, err)
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"水", "氷", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EditDistance(tc.a, tc.b), "EditDistance(%q, %q)", tc.a, tc.b)
	}
}
