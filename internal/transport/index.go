package transport

import (
	"strings"
	"time"
)

// momentTokens is ordered longest first so that YYYY wins over YY.
var momentTokens = []struct {
	moment string
	layout string
}{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MM", "01"},
	{"M", "1"},
	{"DD", "02"},
	{"D", "2"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
}

// LayoutFromPattern converts a Moment.js date pattern such as "YYYY.MM.DD"
// into a Go time layout. Characters outside the supported tokens are kept.
func LayoutFromPattern(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		matched := false
		for _, tok := range momentTokens {
			if strings.HasPrefix(pattern[i:], tok.moment) {
				b.WriteString(tok.layout)
				i += len(tok.moment)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

// IndexNamer picks the destination index for a document.
type IndexNamer struct {
	Index  string
	Prefix string
	layout string
}

func NewIndexNamer(index, prefix, suffixPattern string) IndexNamer {
	return IndexNamer{
		Index:  index,
		Prefix: prefix,
		layout: LayoutFromPattern(suffixPattern),
	}
}

// Name returns the fixed index when one is configured, otherwise
// <prefix>-<date> in UTC.
func (n IndexNamer) Name(t time.Time) string {
	if n.Index != "" {
		return n.Index
	}
	if n.layout == "" {
		return n.Prefix
	}
	return n.Prefix + "-" + t.UTC().Format(n.layout)
}
