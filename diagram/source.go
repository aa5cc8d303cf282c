package diagram

import (
	"fmt"
	"regexp"
	"strings"
)

// Orientation is the layout direction of a diagram.
type Orientation string

const (
	TopDown   Orientation = "TD"
	LeftRight Orientation = "LR"
)

// ParseOrientation accepts the direction tokens of the diagram language.
func ParseOrientation(value string) (Orientation, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "TD", "TB", "BT":
		return TopDown, nil
	case "LR", "RL":
		return LeftRight, nil
	default:
		return "", fmt.Errorf("unknown orientation %q", value)
	}
}

// Source is a diagram description plus its layout direction.
type Source struct {
	Text        string
	Orientation Orientation
}

var headerPattern = regexp.MustCompile(`(?m)^([ \t]*(?:graph|flowchart))(?:([ \t]+)(TB|TD|BT|LR|RL))?\b`)

// NewSource reads the orientation from the graph header, defaulting to TopDown.
func NewSource(text string) Source {
	src := Source{Text: text, Orientation: TopDown}
	if m := headerPattern.FindStringSubmatch(text); m != nil && m[3] != "" {
		if o, err := ParseOrientation(m[3]); err == nil {
			src.Orientation = o
		}
	}
	return src
}

// Empty reports whether the source has no content.
func (s Source) Empty() bool {
	return strings.TrimSpace(s.Text) == ""
}

// Identity is the cache key of a render: exact text plus orientation.
func (s Source) Identity() string {
	return string(s.normalizedOrientation()) + "\x00" + s.Text
}

// WithOrientation returns a copy laid out in o with the header rewritten to match.
func (s Source) WithOrientation(o Orientation) Source {
	out := Source{Text: s.Text, Orientation: o}
	loc := headerPattern.FindStringSubmatchIndex(s.Text)
	if loc == nil {
		return out
	}
	keywordEnd := loc[3]
	end := loc[1]
	out.Text = s.Text[:keywordEnd] + " " + string(o) + s.Text[end:]
	return out
}

func (s Source) normalizedOrientation() Orientation {
	if s.Orientation == "" {
		return TopDown
	}
	return s.Orientation
}
