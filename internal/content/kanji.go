package content

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// KanjiAdapter normalizes kanji characters.
type KanjiAdapter struct {
	siblings []entities.KanjiItem
	rng      *rand.Rand
}

func NewKanjiAdapter(siblings []entities.KanjiItem, seed int64) *KanjiAdapter {
	return &KanjiAdapter{siblings: siblings, rng: rand.New(rand.NewSource(seed))}
}

func (a *KanjiAdapter) item(raw any) (entities.KanjiItem, error) {
	item, ok := raw.(entities.KanjiItem)
	if !ok {
		return entities.KanjiItem{}, ErrInvalidRawItem
	}
	return item, nil
}

func (a *KanjiAdapter) Transform(raw any) (entities.ReviewableContent, error) {
	item, err := a.item(raw)
	if err != nil {
		return entities.ReviewableContent{}, err
	}
	if len(item.Meanings) == 0 {
		return entities.ReviewableContent{}, ErrInvalidRawItem
	}

	var alternatives []string
	alternatives = append(alternatives, item.Meanings[1:]...)

	meta := map[string]string{
		"onyomi":  strings.Join(item.Onyomi, ","),
		"kunyomi": strings.Join(item.Kunyomi, ","),
	}
	if len(item.Components) > 0 {
		meta["components"] = strings.Join(item.Components, "")
	}

	return entities.ReviewableContent{
		ID:                 item.ID,
		ContentType:        entities.ContentKanji,
		PrimaryDisplay:     item.Character,
		SecondaryDisplay:   strings.Join(item.Kunyomi, ", "),
		TertiaryDisplay:    strings.Join(item.Meanings, ", "),
		PrimaryAnswer:      item.Meanings[0],
		AlternativeAnswers: alternatives,
		Difficulty:         a.CalculateDifficulty(raw),
		Tags:               kanjiTags(item),
		SupportedModes:     []entities.ReviewMode{entities.ModeRecognition, entities.ModeRecall, entities.ModeWriting},
		Metadata:           meta,
	}, nil
}

func (a *KanjiAdapter) GenerateOptions(raw any, count int) ([]string, error) {
	item, err := a.item(raw)
	if err != nil {
		return nil, err
	}
	pool := make([]string, 0, len(a.siblings))
	for _, s := range a.siblings {
		if s.ID != item.ID && len(s.Meanings) > 0 {
			pool = append(pool, s.Meanings[0])
		}
	}
	return pickDistractors(item.Meanings[0], pool, count, a.rng), nil
}

// CalculateDifficulty combines stroke count (dominant) with JLPT level.
func (a *KanjiAdapter) CalculateDifficulty(raw any) float64 {
	item, err := a.item(raw)
	if err != nil {
		return 0.5
	}
	// 25+ strokes saturates the stroke term.
	strokes := clamp01(float64(item.StrokeCount) / 25.0)
	level := 0.5
	if item.JLPTLevel >= 1 && item.JLPTLevel <= 5 {
		// N5 → 0.0, N1 → 1.0
		level = float64(5-item.JLPTLevel) / 4.0
	}
	return clamp01(0.6*strokes + 0.4*level)
}

func kanjiTags(item entities.KanjiItem) []string {
	var tags []string
	if item.JLPTLevel > 0 {
		tags = append(tags, "jlpt-n"+strconv.Itoa(item.JLPTLevel))
	}
	if item.Grade > 0 {
		tags = append(tags, "grade-"+strconv.Itoa(item.Grade))
	}
	return tags
}
