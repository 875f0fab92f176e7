package content

import (
	"math/rand"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// KanaAdapter normalizes kana characters. Siblings supply the distractor pool.
type KanaAdapter struct {
	siblings []entities.KanaItem
	rng      *rand.Rand
}

// NewKanaAdapter creates the adapter over the full kana set.
func NewKanaAdapter(siblings []entities.KanaItem, seed int64) *KanaAdapter {
	return &KanaAdapter{siblings: siblings, rng: rand.New(rand.NewSource(seed))}
}

func (a *KanaAdapter) item(raw any) (entities.KanaItem, error) {
	item, ok := raw.(entities.KanaItem)
	if !ok {
		return entities.KanaItem{}, ErrInvalidRawItem
	}
	return item, nil
}

func (a *KanaAdapter) Transform(raw any) (entities.ReviewableContent, error) {
	item, err := a.item(raw)
	if err != nil {
		return entities.ReviewableContent{}, err
	}
	return entities.ReviewableContent{
		ID:               item.ID,
		ContentType:      entities.ContentKana,
		PrimaryDisplay:   item.Character,
		SecondaryDisplay: item.Romaji,
		PrimaryAnswer:    item.Romaji,
		Difficulty:       a.CalculateDifficulty(raw),
		Tags:             []string{item.Script, item.Row},
		SupportedModes:   []entities.ReviewMode{entities.ModeRecognition, entities.ModeRecall, entities.ModeListening, entities.ModeWriting},
		Metadata:         map[string]string{"script": item.Script},
	}, nil
}

func (a *KanaAdapter) GenerateOptions(raw any, count int) ([]string, error) {
	item, err := a.item(raw)
	if err != nil {
		return nil, err
	}
	pool := make([]string, 0, len(a.siblings))
	for _, s := range a.siblings {
		if s.ID != item.ID {
			pool = append(pool, s.Romaji)
		}
	}
	return pickDistractors(item.Romaji, pool, count, a.rng), nil
}

// CalculateDifficulty rates base rows easiest; katakana and the later
// gojūon rows read as slightly harder.
func (a *KanaAdapter) CalculateDifficulty(raw any) float64 {
	item, err := a.item(raw)
	if err != nil {
		return 0.5
	}
	d := 0.1
	if item.Script == "katakana" {
		d += 0.1
	}
	if len([]rune(item.Character)) > 1 { // digraphs like きゃ
		d += 0.15
	}
	return clamp01(d)
}
