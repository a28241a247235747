// Package reading derives kana readings for Japanese headwords.
package reading

import (
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/pkg/errors"
)

// Annotator tokenizes headwords with the IPA dictionary.
type Annotator struct {
	t *tokenizer.Tokenizer
}

// NewAnnotator creates a tokenizer-backed annotator. Loading the dictionary
// takes a noticeable moment, so build one and reuse it.
func NewAnnotator() (*Annotator, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, errors.Wrap(err, "create tokenizer")
	}
	return &Annotator{t: t}, nil
}

// Reading returns the hiragana reading of text, or "" when any token lacks a
// known pronunciation.
func (a *Annotator) Reading(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var b strings.Builder
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}
		// IPA features: 0-5 POS and conjugation, 6 base form, 7 reading, 8 pronunciation.
		features := token.Features()
		switch {
		case len(features) > 7 && features[7] != "*":
			b.WriteString(features[7])
		case IsKana(token.Surface):
			b.WriteString(token.Surface)
		default:
			return ""
		}
	}
	return ToHiragana(b.String())
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// IsKana reports whether s is non-empty and consists only of hiragana,
// katakana and the prolonged sound mark.
func IsKana(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.In(r, unicode.Hiragana, unicode.Katakana) && r != 'ー' {
			return false
		}
	}
	return true
}
