package entities

// ContentType identifies the kind of learnable item behind a reviewable card.
// The set is closed: adding a new kind means registering a new adapter variant
// for its tag, not extending a conditional chain.
type ContentType string

const (
	ContentKana       ContentType = "kana"
	ContentKanji      ContentType = "kanji"
	ContentVocabulary ContentType = "vocabulary"
	ContentSentence   ContentType = "sentence"
	ContentCustom     ContentType = "custom"
)

// ReviewMode is a study mode an item can be presented in.
type ReviewMode string

const (
	ModeRecognition ReviewMode = "recognition"
	ModeRecall      ReviewMode = "recall"
	ModeListening   ReviewMode = "listening"
	ModeWriting     ReviewMode = "writing"
)

// ReviewableContent is the content-type-agnostic projection of a learnable item.
// It is created by an adapter at read time and is immutable for the life of a session.
type ReviewableContent struct {
	ID                 string
	ContentType        ContentType
	PrimaryDisplay     string // what the learner is shown first
	SecondaryDisplay   string // progressive disclosure, e.g. reading
	TertiaryDisplay    string // progressive disclosure, e.g. meaning
	PrimaryAnswer      string
	AlternativeAnswers []string
	Difficulty         float64 // intrinsic difficulty in [0, 1]
	Tags               []string
	SupportedModes     []ReviewMode
	Metadata           map[string]string
}

// Supports reports whether the item can be presented in the given mode.
func (c *ReviewableContent) Supports(mode ReviewMode) bool {
	for _, m := range c.SupportedModes {
		if m == mode {
			return true
		}
	}
	return false
}

// AcceptedAnswers returns the primary answer followed by all alternatives.
func (c *ReviewableContent) AcceptedAnswers() []string {
	out := make([]string, 0, 1+len(c.AlternativeAnswers))
	out = append(out, c.PrimaryAnswer)
	out = append(out, c.AlternativeAnswers...)
	return out
}
