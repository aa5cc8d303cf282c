package locale

import (
	"sync"

	i18n "github.com/goliatone/go-i18n"
)

// Message keys of the document strings.
const (
	KeyTitle            = "document.title"
	KeyCreationDate     = "document.creation_date"
	KeyStrategyHeading  = "document.heading.strategy"
	KeyKPIHeading       = "document.heading.kpis"
	KeyDiagramHeading   = "document.heading.diagram"
	KeyDiagramFailed    = "diagram.failed"
	KeyDiagramLoading   = "diagram.loading"
	KeyDiagramEmpty     = "diagram.empty"
	KeyFilenamePrefix   = "export.filename_prefix"
	KeyExportFailed     = "export.failed"
	KeyExportInProgress = "export.in_progress"
)

const defaultLocale = "en"

var catalog = map[string]map[string]string{
	"en": {
		KeyTitle:            "%s Strategy for %s",
		KeyCreationDate:     "Creation Date",
		KeyStrategyHeading:  "Strategy",
		KeyKPIHeading:       "Key Performance Indicators",
		KeyDiagramHeading:   "Workflow Diagram",
		KeyDiagramFailed:    "Failed to load diagram",
		KeyDiagramLoading:   "Loading diagram...",
		KeyDiagramEmpty:     "No workflow diagram available",
		KeyFilenamePrefix:   "Strategy",
		KeyExportFailed:     "Failed to export PDF",
		KeyExportInProgress: "An export is already in progress",
	},
	"ar": {
		KeyTitle:            "%s استراتيجية لـ %s",
		KeyCreationDate:     "تاريخ الإنشاء",
		KeyStrategyHeading:  "الاستراتيجية",
		KeyKPIHeading:       "مؤشرات الأداء الرئيسية",
		KeyDiagramHeading:   "مخطط سير العمل",
		KeyDiagramFailed:    "فشل تحميل المخطط",
		KeyDiagramLoading:   "جارٍ تحميل المخطط...",
		KeyDiagramEmpty:     "لا يوجد مخطط سير عمل",
		KeyFilenamePrefix:   "استراتيجية",
		KeyExportFailed:     "فشل تصدير ملف PDF",
		KeyExportInProgress: "عملية تصدير قيد التنفيذ بالفعل",
	},
}

// Messages are the user-visible strings of a document.
type Messages struct {
	CreationDate     string
	StrategyHeading  string
	KPIHeading       string
	DiagramHeading   string
	DiagramFailed    string
	DiagramLoading   string
	DiagramEmpty     string
	FilenamePrefix   string
	ExportFailed     string
	ExportInProgress string
}

func translations() i18n.Translations {
	out := make(i18n.Translations, len(catalog))
	for code, entries := range catalog {
		messages := make(map[string]i18n.Message, len(entries))
		for key, text := range entries {
			msg := i18n.Message{MessageMetadata: i18n.MessageMetadata{ID: key, Locale: code}}
			msg.SetContent(text)
			messages[key] = msg
		}
		out[code] = &i18n.TranslationCatalog{
			Locale:   i18n.Locale{Code: code},
			Messages: messages,
		}
	}
	return out
}

var translator = sync.OnceValues(func() (*i18n.SimpleTranslator, error) {
	store := i18n.NewStaticStore(translations())
	return i18n.NewSimpleTranslator(store, i18n.WithTranslatorDefaultLocale(defaultLocale))
})

// Translator returns the shared translator over the built-in catalogue.
func Translator() (i18n.Translator, error) {
	return translator()
}

// Code returns the catalogue locale of l.
func (l Language) Code() string {
	if l == Arabic {
		return "ar"
	}
	return defaultLocale
}

// Translate resolves key for l, falling back to English. Unknown keys
// are returned unchanged.
func (l Language) Translate(key string, args ...any) string {
	t, err := translator()
	if err != nil {
		return key
	}
	text, err := t.Translate(l.Code(), key, args...)
	if err != nil {
		return key
	}
	return text
}

// Title is the localized export heading for a strategy type and industry.
func (l Language) Title(typeName, industry string) string {
	return l.Translate(KeyTitle, typeName, industry)
}

var messageSets sync.Map

// Messages returns the localized strings for l.
func (l Language) Messages() Messages {
	code := l.Code()
	if cached, ok := messageSets.Load(code); ok {
		return cached.(Messages)
	}
	msgs := Messages{
		CreationDate:     l.Translate(KeyCreationDate),
		StrategyHeading:  l.Translate(KeyStrategyHeading),
		KPIHeading:       l.Translate(KeyKPIHeading),
		DiagramHeading:   l.Translate(KeyDiagramHeading),
		DiagramFailed:    l.Translate(KeyDiagramFailed),
		DiagramLoading:   l.Translate(KeyDiagramLoading),
		DiagramEmpty:     l.Translate(KeyDiagramEmpty),
		FilenamePrefix:   l.Translate(KeyFilenamePrefix),
		ExportFailed:     l.Translate(KeyExportFailed),
		ExportInProgress: l.Translate(KeyExportInProgress),
	}
	messageSets.Store(code, msgs)
	return msgs
}
