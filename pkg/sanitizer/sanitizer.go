package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	singleLine = Pipeline{stripControl(false), TrimAndNormalize}
	multiLine  = Pipeline{stripControl(true), trimLines, strings.TrimSpace}
)

// SanitizeText is used for names, event names and locations.
func SanitizeText(s string) string {
	return singleLine.Apply(s)
}

// SanitizeNotes keeps line breaks but removes every other control character.
func SanitizeNotes(s string) string {
	return multiLine.Apply(s)
}

func SanitizeID(s string) string {
	return strings.TrimSpace(s)
}

// SanitizePtr applies strategy to *p in place when p is non-nil.
func SanitizePtr(p *string, strategy Strategy) {
	if p != nil {
		*p = strategy(*p)
	}
}

func stripControl(keepNewlines bool) Strategy {
	return func(s string) string {
		return strings.Map(func(r rune) rune {
			if r == '\n' && keepNewlines {
				return r
			}
			if r == '\t' || r == '\n' || r == '\r' {
				return ' '
			}
			if unicode.IsControl(r) {
				return -1
			}
			return r
		}, s)
	}
}

func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = TrimAndNormalize(line)
	}
	return strings.Join(lines, "\n")
}
