package content

import (
	"math/rand"
	"strings"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// VocabularyAdapter normalizes vocabulary words.
type VocabularyAdapter struct {
	siblings []entities.VocabularyItem
	rng      *rand.Rand
}

func NewVocabularyAdapter(siblings []entities.VocabularyItem, seed int64) *VocabularyAdapter {
	return &VocabularyAdapter{siblings: siblings, rng: rand.New(rand.NewSource(seed))}
}

func (a *VocabularyAdapter) item(raw any) (entities.VocabularyItem, error) {
	item, ok := raw.(entities.VocabularyItem)
	if !ok {
		return entities.VocabularyItem{}, ErrInvalidRawItem
	}
	return item, nil
}

func (a *VocabularyAdapter) Transform(raw any) (entities.ReviewableContent, error) {
	item, err := a.item(raw)
	if err != nil {
		return entities.ReviewableContent{}, err
	}
	if len(item.Meanings) == 0 {
		return entities.ReviewableContent{}, ErrInvalidRawItem
	}

	tags := append([]string{}, item.Tags...)
	if item.PartOfSpeech != "" {
		tags = append(tags, item.PartOfSpeech)
	}

	return entities.ReviewableContent{
		ID:                 item.ID,
		ContentType:        entities.ContentVocabulary,
		PrimaryDisplay:     item.Word,
		SecondaryDisplay:   item.Reading,
		TertiaryDisplay:    strings.Join(item.Meanings, ", "),
		PrimaryAnswer:      item.Meanings[0],
		AlternativeAnswers: item.Meanings[1:],
		Difficulty:         a.CalculateDifficulty(raw),
		Tags:               tags,
		SupportedModes:     []entities.ReviewMode{entities.ModeRecognition, entities.ModeRecall, entities.ModeListening},
		Metadata:           map[string]string{"reading": item.Reading},
	}, nil
}

func (a *VocabularyAdapter) GenerateOptions(raw any, count int) ([]string, error) {
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

// CalculateDifficulty rates longer and uncommon words harder.
func (a *VocabularyAdapter) CalculateDifficulty(raw any) float64 {
	item, err := a.item(raw)
	if err != nil {
		return 0.5
	}
	length := clamp01(float64(len([]rune(item.Word))) / 8.0)
	d := 0.2 + 0.5*length
	if !item.Common {
		d += 0.2
	}
	return clamp01(d)
}
