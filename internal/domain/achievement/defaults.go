package achievement

import (
	"time"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BUILT-IN CONTENT
// ══════════════════════════════════════════════════════════════════════════════

// BuiltinContent is the shipped achievement set, used when no content file is
// configured. Ids are stable: they end up persisted in sessions.
type BuiltinContent struct{}

// ListDefinitions implements Content.
func (BuiltinContent) ListDefinitions() []Definition {
	return []Definition{
		{
			ID:        "first_world",
			Predicate: WorldsCompletedAtLeast(1),
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Алғашқы қадам",
				shared.LocaleRussian: "Первый шаг",
				shared.LocaleEnglish: "First Step",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "Бірінші әлемді аяқтау",
				shared.LocaleRussian: "Завершён первый мир",
				shared.LocaleEnglish: "Completed the first world",
			},
		},
		{
			ID:        "halfway",
			Predicate: WorldsCompletedAtLeast(3),
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Жолдың жартысы",
				shared.LocaleRussian: "Половина пути",
				shared.LocaleEnglish: "Halfway There",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "Үш әлем аяқталды",
				shared.LocaleRussian: "Завершены три мира",
				shared.LocaleEnglish: "Completed three worlds",
			},
		},
		{
			ID:        "all_worlds",
			Predicate: AllWorldsCompleted(),
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Ұлы дала шебері",
				shared.LocaleRussian: "Мастер великой степи",
				shared.LocaleEnglish: "Master of the Great Steppe",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "Барлық әлемдер аяқталды",
				shared.LocaleRussian: "Завершены все миры",
				shared.LocaleEnglish: "Completed every world",
			},
		},
		{
			ID:        "score_250",
			Predicate: TotalScoreAtLeast(250),
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Білім жинаушы",
				shared.LocaleRussian: "Собиратель знаний",
				shared.LocaleEnglish: "Knowledge Gatherer",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "250 ұпай жиналды",
				shared.LocaleRussian: "Набрано 250 очков",
				shared.LocaleEnglish: "Reached 250 total points",
			},
		},
		{
			ID:        "perfectionist",
			Predicate: ReplayedAnyWorld(),
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Жетілдіруші",
				shared.LocaleRussian: "Перфекционист",
				shared.LocaleEnglish: "Perfectionist",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "Әлемді қайта ойнау",
				shared.LocaleRussian: "Повторное прохождение мира",
				shared.LocaleEnglish: "Replayed a world",
			},
		},
		{
			ID:        "dedicated_hour",
			Predicate: TotalTimeAtLeastMs(int64(time.Hour / time.Millisecond)),
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Табанды оқушы",
				shared.LocaleRussian: "Усердный ученик",
				shared.LocaleEnglish: "Dedicated Learner",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "Бір сағат оқу",
				shared.LocaleRussian: "Час обучения",
				shared.LocaleEnglish: "Spent an hour learning",
			},
		},
	}
}
