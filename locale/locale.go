// Package locale holds the two output languages of exported documents:
// detection from content, localized strings and date formatting.
package locale

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Language is an output language.
type Language string

const (
	English Language = "English"
	Arabic  Language = "Arabic"
)

var (
	arabicScript = regexp.MustCompile(`[\x{0600}-\x{06FF}]`)
	egyptArabic  = language.MustParse("ar-EG")
	matcher      = language.NewMatcher([]language.Tag{language.AmericanEnglish, egyptArabic})
)

// Detect returns Arabic when text contains Arabic script, English otherwise.
func Detect(text string) Language {
	if arabicScript.MatchString(text) {
		return Arabic
	}
	return English
}

// Parse resolves a language name or BCP 47 tag. Unknown values fall back to English.
func Parse(value string) Language {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "english":
		return English
	case "arabic":
		return Arabic
	}
	tag, err := language.Parse(value)
	if err != nil {
		return English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No || idx != 1 {
		return English
	}
	return Arabic
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == English || l == Arabic
}

// Tag returns the BCP 47 tag used for formatting.
func (l Language) Tag() language.Tag {
	if l == Arabic {
		return egyptArabic
	}
	return language.AmericanEnglish
}

// Direction returns the text direction of l.
func (l Language) Direction() string {
	if l == Arabic {
		return "rtl"
	}
	return "ltr"
}

const rlm = "\u200f"

// FormatDate renders t the way each locale prints a short date:
// en-US as M/D/YYYY, ar-EG as D/M/YYYY in Arabic-Indic digits.
func (l Language) FormatDate(t time.Time) string {
	day := strconv.Itoa(t.Day())
	month := strconv.Itoa(int(t.Month()))
	year := strconv.Itoa(t.Year())
	if l != Arabic {
		return month + "/" + day + "/" + year
	}
	return arabicDigits(day) + rlm + "/" + arabicDigits(month) + rlm + "/" + arabicDigits(year)
}

func arabicDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune('٠' + (r - '0'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
