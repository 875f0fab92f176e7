package content

import (
	"math/rand"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// SentenceAdapter normalizes example sentences.
type SentenceAdapter struct {
	siblings []entities.SentenceItem
	rng      *rand.Rand
}

func NewSentenceAdapter(siblings []entities.SentenceItem, seed int64) *SentenceAdapter {
	return &SentenceAdapter{siblings: siblings, rng: rand.New(rand.NewSource(seed))}
}

func (a *SentenceAdapter) item(raw any) (entities.SentenceItem, error) {
	item, ok := raw.(entities.SentenceItem)
	if !ok {
		return entities.SentenceItem{}, ErrInvalidRawItem
	}
	return item, nil
}

func (a *SentenceAdapter) Transform(raw any) (entities.ReviewableContent, error) {
	item, err := a.item(raw)
	if err != nil {
		return entities.ReviewableContent{}, err
	}
	return entities.ReviewableContent{
		ID:                 item.ID,
		ContentType:        entities.ContentSentence,
		PrimaryDisplay:     item.Japanese,
		SecondaryDisplay:   item.Reading,
		TertiaryDisplay:    item.Translation,
		PrimaryAnswer:      item.Translation,
		AlternativeAnswers: item.AltTranslations,
		Difficulty:         a.CalculateDifficulty(raw),
		SupportedModes:     []entities.ReviewMode{entities.ModeRecognition, entities.ModeListening},
	}, nil
}

func (a *SentenceAdapter) GenerateOptions(raw any, count int) ([]string, error) {
	item, err := a.item(raw)
	if err != nil {
		return nil, err
	}
	pool := make([]string, 0, len(a.siblings))
	for _, s := range a.siblings {
		if s.ID != item.ID {
			pool = append(pool, s.Translation)
		}
	}
	return pickDistractors(item.Translation, pool, count, a.rng), nil
}

// CalculateDifficulty scales with sentence length; 30+ runes saturates.
func (a *SentenceAdapter) CalculateDifficulty(raw any) float64 {
	item, err := a.item(raw)
	if err != nil {
		return 0.5
	}
	return clamp01(0.3 + 0.7*float64(len([]rune(item.Japanese)))/30.0)
}
