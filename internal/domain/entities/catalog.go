package entities

// Raw catalog item shapes as supplied by the content catalog collaborator.
// The engine never fetches these itself; adapters normalize them into
// ReviewableContent.

// KanaItem is a single hiragana or katakana character.
type KanaItem struct {
	ID        string
	Character string
	Romaji    string
	Script    string // "hiragana" or "katakana"
	Row       string // gojūon row, e.g. "ka"
}

// KanjiItem is a kanji character with its readings.
type KanjiItem struct {
	ID          string
	Character   string
	Meanings    []string
	Onyomi      []string
	Kunyomi     []string
	StrokeCount int
	Grade       int // school grade, 0 when ungraded
	JLPTLevel   int // 5 (easiest) to 1, 0 when unknown
	Components  []string
}

// VocabularyItem is a word with reading and meanings.
type VocabularyItem struct {
	ID           string
	Word         string
	Reading      string
	Meanings     []string
	PartOfSpeech string
	Common       bool
	Tags         []string
}

// SentenceItem is an example sentence with its translation.
type SentenceItem struct {
	ID              string
	Japanese        string
	Reading         string
	Translation     string
	AltTranslations []string
}

// CustomItem is user-authored content; front/back plus accepted answers.
type CustomItem struct {
	ID         string
	Front      string
	Back       string
	AltAnswers []string
	Tags       []string
	Difficulty float64 // author-supplied, clamped to [0, 1]
}
