// Package strategy describes the strategy documents the pipeline exports:
// the catalogue of strategy types and the payload of the upstream generator.
package strategy

import (
	"sort"

	"github.com/goliatone/go-workflow-export/locale"
)

// Text is a string in both output languages.
type Text struct {
	English string `json:"en"`
	Arabic  string `json:"ar"`
}

// In returns the text for lang.
func (t Text) In(lang locale.Language) string {
	if lang == locale.Arabic && t.Arabic != "" {
		return t.Arabic
	}
	return t.English
}

// Keywords are suggested keywords in both languages.
type Keywords struct {
	English []string `json:"en"`
	Arabic  []string `json:"ar"`
}

// Type is a strategy category.
type Type struct {
	ID          string   `json:"id"`
	Name        Text     `json:"name"`
	Description Text     `json:"description"`
	Keywords    Keywords `json:"keywords"`
}

// DisplayName is the localized name used in titles and filenames.
func (t Type) DisplayName(lang locale.Language) string {
	return t.Name.In(lang)
}

const (
	Tax        = "tax"
	Employment = "employment"
	Marketing  = "marketing"
	Finance    = "finance"
	General    = "general"
)

var catalog = map[string]Type{
	Tax: {
		ID:          Tax,
		Name:        Text{English: "Tax", Arabic: "الضرائب"},
		Description: Text{English: "Strategies for tax optimization and compliance", Arabic: "استراتيجيات لتحسين الإدارة الضريبية وتقليل الالتزامات"},
		Keywords:    Keywords{English: []string{"tax", "tax filing", "tax reduction"}, Arabic: []string{"ضريبة", "إقرار ضريبي", "تخفيض ضريبي"}},
	},
	Employment: {
		ID:          Employment,
		Name:        Text{English: "Employment", Arabic: "التوظيف"},
		Description: Text{English: "Strategies for talent acquisition and HR management", Arabic: "استراتيجيات لتوظيف الكفاءات وإدارة الموارد البشرية"},
		Keywords:    Keywords{English: []string{"employment", "hiring", "recruitment policy"}, Arabic: []string{"توظيف", "توظيف العمالة", "سياسة التوظيف"}},
	},
	Marketing: {
		ID:          Marketing,
		Name:        Text{English: "Marketing", Arabic: "التسويق"},
		Description: Text{English: "Strategies for brand promotion and sales growth", Arabic: "استراتيجيات لتعزيز العلامة التجارية وزيادة المبيعات"},
		Keywords:    Keywords{English: []string{"marketing", "campaign", "marketing strategy"}, Arabic: []string{"تسويق", "حملة تسويقية", "استراتيجية تسويق"}},
	},
	Finance: {
		ID:          Finance,
		Name:        Text{English: "Finance", Arabic: "التمويل"},
		Description: Text{English: "Strategies for financial management and investment", Arabic: "استراتيجيات لإدارة التدفقات المالية والاستثمار"},
		Keywords:    Keywords{English: []string{"finance", "financial management", "investment"}, Arabic: []string{"تمويل", "إدارة مالية", "استثمار"}},
	},
	General: {
		ID:          General,
		Name:        Text{English: "General", Arabic: "عام"},
		Description: Text{English: "General business strategies suitable for various fields", Arabic: "استراتيجيات أعمال عامة تناسب مختلف المجالات"},
		Keywords:    Keywords{English: []string{"strategy", "business plan", "business development"}, Arabic: []string{"استراتيجية", "خطة عمل", "تطوير أعمال"}},
	},
}

// Lookup returns the strategy type with id.
func Lookup(id string) (Type, bool) {
	t, ok := catalog[id]
	return t, ok
}

// Types returns every strategy type ordered by id.
func Types() []Type {
	out := make([]Type, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
