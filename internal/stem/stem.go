// Package stem normalizes transcript text so different forms of a word match each other.
package stem

import (
	"strings"
	"sync"
	"unicode"

	"github.com/reiver/go-porterstemmer"
)

var builders = sync.Pool{
	New: func() any {
		return &strings.Builder{}
	},
}

// Line lower cases, strips punctuation and stems every word of value, joining them with single spaces.
func Line(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	b := builders.Get().(*strings.Builder)
	b.Reset()
	b.Grow(len(value))

	for _, word := range Words(value) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}

	s := b.String()
	builders.Put(b)
	return s
}

// Words returns the stemmed words of value, words that are only punctuation are dropped.
func Words(value string) []string {
	fields := strings.Fields(value)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, trimPunctuation)
		if f == "" {
			continue
		}

		words = append(words, porterstemmer.StemString(strings.ToLower(f)))
	}
	return words
}

func trimPunctuation(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
