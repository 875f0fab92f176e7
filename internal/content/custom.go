package content

import (
	"math/rand"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// CustomAdapter normalizes user-authored items. Distractors come from the
// user's other custom cards.
type CustomAdapter struct {
	siblings []entities.CustomItem
	rng      *rand.Rand
}

func NewCustomAdapter(siblings []entities.CustomItem, seed int64) *CustomAdapter {
	return &CustomAdapter{siblings: siblings, rng: rand.New(rand.NewSource(seed))}
}

func (a *CustomAdapter) item(raw any) (entities.CustomItem, error) {
	item, ok := raw.(entities.CustomItem)
	if !ok {
		return entities.CustomItem{}, ErrInvalidRawItem
	}
	return item, nil
}

func (a *CustomAdapter) Transform(raw any) (entities.ReviewableContent, error) {
	item, err := a.item(raw)
	if err != nil {
		return entities.ReviewableContent{}, err
	}
	return entities.ReviewableContent{
		ID:                 item.ID,
		ContentType:        entities.ContentCustom,
		PrimaryDisplay:     item.Front,
		PrimaryAnswer:      item.Back,
		AlternativeAnswers: item.AltAnswers,
		Difficulty:         a.CalculateDifficulty(raw),
		Tags:               item.Tags,
		SupportedModes:     []entities.ReviewMode{entities.ModeRecognition, entities.ModeRecall},
	}, nil
}

func (a *CustomAdapter) GenerateOptions(raw any, count int) ([]string, error) {
	item, err := a.item(raw)
	if err != nil {
		return nil, err
	}
	pool := make([]string, 0, len(a.siblings))
	for _, s := range a.siblings {
		if s.ID != item.ID {
			pool = append(pool, s.Back)
		}
	}
	return pickDistractors(item.Back, pool, count, a.rng), nil
}

// CalculateDifficulty trusts the author-supplied value, clamped; 0.5 when unset.
func (a *CustomAdapter) CalculateDifficulty(raw any) float64 {
	item, err := a.item(raw)
	if err != nil {
		return 0.5
	}
	if item.Difficulty == 0 {
		return 0.5
	}
	return clamp01(item.Difficulty)
}
