package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TranslationService resolves UI strings per locale. Providers fall back to
// their English literals when a key is missing.
type TranslationService interface {
	Translate(ctx context.Context, key, locale string, args map[string]any) (string, error)
}

// ErrMissingTranslation is returned by StaticTranslations for unknown keys.
var ErrMissingTranslation = errors.New("dashboard: missing translation")

// StaticTranslations is an in-memory catalog keyed by locale then message key.
// Messages may reference args as {name}.
type StaticTranslations map[string]map[string]string

// Translate looks the key up for locale, falling back from "ru-RU" to "ru".
func (c StaticTranslations) Translate(_ context.Context, key, locale string, args map[string]any) (string, error) {
	for _, candidate := range localeCandidates(locale) {
		for catalogLocale, messages := range c {
			if !strings.EqualFold(catalogLocale, candidate) {
				continue
			}
			if msg, ok := messages[key]; ok {
				return interpolate(msg, args), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrMissingTranslation, key, locale)
}

func interpolate(msg string, args map[string]any) string {
	if len(args) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// DefaultTranslations returns the built-in Russian catalog. English strings
// are the provider literals.
func DefaultTranslations() StaticTranslations {
	return StaticTranslations{
		"ru": {
			"dashboard.summary.title":               "Сводка",
			"dashboard.summary.period_fallback":     "Период не выбран",
			"dashboard.filters.period_fallback":     "Период не выбран",
			datePresetLabelKey + "today":            "Сегодня",
			datePresetLabelKey + "yesterday":        "Вчера",
			datePresetLabelKey + "this_week":        "Эта неделя",
			datePresetLabelKey + "last_week":        "Прошлая неделя",
			datePresetLabelKey + "this_month":       "Этот месяц",
			datePresetLabelKey + "last_month":       "Прошлый месяц",
			datePresetLabelKey + "september_2025":   "Сентябрь 2025",
			datePresetLabelKey + "last_3_months":    "Последние 3 месяца",
			metricLabelKey + MetricSpend:            "Расходы",
			metricLabelKey + MetricClicks:           "Клики",
			metricLabelKey + MetricOrders:           "Заказы",
			metricLabelKey + MetricSales:            "Продажи",
			metricLabelKey + MetricConversion:       "Конверсия",
			metricLabelKey + MetricCommissionRate:   "Ставка комиссии",
			metricLabelKey + MetricProfit:           "Прибыль",
			metricLabelKey + MetricPromotionalCosts: "Промо-расходы",
		},
	}
}

const metricLabelKey = "dashboard.metric."

// ResolveLocalizedValue selects the best translation for the provided locale and falls back to the supplied value.
// Keys are matched case-insensitively, and language-region pairs (`ru-ru`) fall back to their base language.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, candidate := range localeCandidates(locale) {
		for key, value := range values {
			if strings.EqualFold(key, candidate) && value != "" {
				return value
			}
		}
	}
	return fallback
}

func (def *WidgetDefinition) normalizeLocalizedFields() {
	def.NameLocalized = normalizeLocaleMap(def.NameLocalized)
	def.DescriptionLocalized = normalizeLocaleMap(def.DescriptionLocalized)
}

// NameForLocale returns the display name for the requested locale.
func (def WidgetDefinition) NameForLocale(locale string) string {
	return ResolveLocalizedValue(def.NameLocalized, locale, def.Name)
}

// DescriptionForLocale returns the localized description if available.
func (def WidgetDefinition) DescriptionForLocale(locale string) string {
	return ResolveLocalizedValue(def.DescriptionLocalized, locale, def.Description)
}

func normalizeLocaleMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	normalized := make(map[string]string, len(values))
	for key, value := range values {
		key = normalizeLocale(key)
		if key == "" || value == "" {
			continue
		}
		normalized[key] = value
	}
	return normalized
}

func localeCandidates(locale string) []string {
	locale = normalizeLocale(locale)
	candidates := []string{}
	if locale != "" {
		candidates = append(candidates, locale)
		if idx := strings.IndexAny(locale, "-_"); idx > 0 {
			candidates = append(candidates, locale[:idx])
		}
	}
	return append(candidates, "default")
}

func normalizeLocale(locale string) string {
	return strings.TrimSpace(strings.ToLower(locale))
}

func translateOrFallback(ctx context.Context, svc TranslationService, key, locale, fallback string, params map[string]any) string {
	if svc != nil {
		if translated, err := svc.Translate(ctx, key, locale, params); err == nil && translated != "" {
			return translated
		}
	}
	if fallback != "" {
		return fallback
	}
	return key
}
