// Package wiktionary defines the wiktextract (kaikki.org) JSONL document shape
// consumed by the loader.
package wiktionary

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrNotObject is returned for lines that are valid JSON but not an object.
var ErrNotObject = errors.New("document is not a JSON object")

// ErrInvalidUTF8 is returned for lines containing bytes that are not UTF-8.
// Decoding them would silently substitute U+FFFD.
var ErrInvalidUTF8 = errors.New("document is not valid UTF-8")

// Entry is one word/part-of-speech/language record from the feed. Scalars are
// pointers so an absent key stays distinguishable from an empty string and is
// stored as NULL.
type Entry struct {
	Pos                *string      `json:"pos"`
	Word               *string      `json:"word"`
	Lang               *string      `json:"lang"`
	LangCode           *string      `json:"lang_code"`
	EtymologyText      *string      `json:"etymology_text"`
	HeadTemplates      []Template   `json:"head_templates"`
	Forms              []Form       `json:"forms"`
	Descendants        []Descendant `json:"descendants"`
	Sounds             []Sound      `json:"sounds"`
	EtymologyTemplates []Template   `json:"etymology_templates"`
	Hyponyms           []Linkage    `json:"hyponyms"`
	Derived            []Linkage    `json:"derived"`
	Senses             []Sense      `json:"senses"`
}

// Template is an expanded wiki template with its raw arguments.
type Template struct {
	Name      *string           `json:"name"`
	Expansion *string           `json:"expansion"`
	Args      map[string]string `json:"args"`
}

// Form is an inflected or alternative form of the headword.
type Form struct {
	Form *string  `json:"form"`
	Tags []string `json:"tags"`
}

// Descendant is a term in another language derived from the headword.
// Depth is its nesting level in the descendants tree.
type Descendant struct {
	Depth     *int64     `json:"depth"`
	Text      *string    `json:"text"`
	Templates []Template `json:"templates"`
}

// Sound is one pronunciation record of the headword.
type Sound struct {
	IPA       *string  `json:"ipa"`
	Homophone *string  `json:"homophone"`
	Rhymes    *string  `json:"rhymes"`
	Note      *string  `json:"note"`
	Audio     *string  `json:"audio"`
	OggURL    *string  `json:"ogg_url"`
	MP3URL    *string  `json:"mp3_url"`
	Enpr      *string  `json:"enpr"`
	Tags      []string `json:"tags"`
}

// Linkage is a related word: hyponyms, derived terms and sense synonyms all
// share this shape. Dis1 is the extractor's disambiguation marker, kept verbatim.
type Linkage struct {
	Word  *string  `json:"word"`
	Sense *string  `json:"sense"`
	Dis1  *string  `json:"_dis1"`
	Tags  []string `json:"tags"`
}

// Sense is one meaning of the headword.
type Sense struct {
	RawGlosses   []string      `json:"raw_glosses"`
	Glosses      []string      `json:"glosses"`
	ID           *string       `json:"id"`
	Links        [][]string    `json:"links"`
	Topics       []string      `json:"topics"`
	Categories   []Category    `json:"categories"`
	Translations []Translation `json:"translations"`
	Synonyms     []Linkage     `json:"synonyms"`
}

// Category is a wiki category attached to a sense.
type Category struct {
	Name     *string  `json:"name"`
	Kind     *string  `json:"kind"`
	Source   *string  `json:"source"`
	Orig     *string  `json:"orig"`
	Langcode *string  `json:"langcode"`
	Dis      *string  `json:"_dis"`
	Parents  []string `json:"parents"`
}

// Translation renders a sense in another language.
type Translation struct {
	Lang  *string `json:"lang"`
	Code  *string `json:"code"`
	Sense *string `json:"sense"`
	Roman *string `json:"roman"`
	Word  *string `json:"word"`
	Dis1  *string `json:"_dis1"`
}

// ParseLine decodes one feed line. Unknown keys are ignored and missing keys
// leave zero values; anything that is not a JSON object, or is not valid
// UTF-8, is an error.
func ParseLine(line []byte) (*Entry, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if json.Valid(trimmed) {
			return nil, ErrNotObject
		}
		return nil, errors.New("malformed JSON document")
	}
	if !utf8.Valid(trimmed) {
		return nil, ErrInvalidUTF8
	}
	var e Entry
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return nil, errors.Wrap(err, "decode entry")
	}
	return &e, nil
}

// EncodeList serializes a gloss list for storage. A nil list encodes as "[]".
func EncodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", errors.Wrap(err, "encode list")
	}
	return string(b), nil
}

// DecodeList reverses EncodeList.
func DecodeList(s string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, errors.Wrap(err, "decode list")
	}
	return items, nil
}
