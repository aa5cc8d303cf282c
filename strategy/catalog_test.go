package strategy

import (
	"testing"

	"github.com/goliatone/go-workflow-export/locale"
)

func TestLookupDisplayNames(t *testing.T) {
	general, ok := Lookup(General)
	if !ok {
		t.Fatalf("expected general strategy type")
	}
	if general.DisplayName(locale.English) != "General" {
		t.Fatalf("unexpected English name %q", general.DisplayName(locale.English))
	}
	if general.DisplayName(locale.Arabic) != "عام" {
		t.Fatalf("unexpected Arabic name %q", general.DisplayName(locale.Arabic))
	}
	if _, ok := Lookup("unknown"); ok {
		t.Fatalf("expected unknown type to be missing")
	}
}

func TestTypesSorted(t *testing.T) {
	types := Types()
	if len(types) != 5 {
		t.Fatalf("expected 5 types, got %d", len(types))
	}
	if types[0].ID != Employment || types[4].ID != Tax {
		t.Fatalf("unexpected order %s..%s", types[0].ID, types[4].ID)
	}
}

func TestResponseLanguageAndParagraphs(t *testing.T) {
	resp := Response{Strategy: "خطة العمل\r\n\r\n  المرحلة الأولى  \n"}
	if resp.Language() != locale.Arabic {
		t.Fatalf("expected Arabic")
	}
	paras := resp.Paragraphs()
	if len(paras) != 2 || paras[1] != "المرحلة الأولى" {
		t.Fatalf("unexpected paragraphs %q", paras)
	}
}
