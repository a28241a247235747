package wiktionary

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineExample(t *testing.T) {
	line := `{"word":"run","pos":"verb","lang":"English","lang_code":"en","forms":[{"form":"running","tags":["present"]}]}`
	e, err := ParseLine([]byte(line))
	require.NoError(t, err)

	require.NotNil(t, e.Word)
	assert.Equal(t, "run", *e.Word)
	assert.Equal(t, "verb", *e.Pos)
	assert.Equal(t, "English", *e.Lang)
	assert.Equal(t, "en", *e.LangCode)
	assert.Nil(t, e.EtymologyText)
	require.Len(t, e.Forms, 1)
	assert.Equal(t, "running", *e.Forms[0].Form)
	assert.Equal(t, []string{"present"}, e.Forms[0].Tags)
	assert.Empty(t, e.Sounds)
	assert.Empty(t, e.Senses)
}

func TestParseLineNestedFields(t *testing.T) {
	line := `{"word":"cat","senses":[{"id":"en-cat-noun-1","glosses":["a feline"],
		"links":[["feline","feline#English"],["pet"]],
		"categories":[{"name":"Felids","kind":"lifeform","_dis":"12 3","parents":["Mammals"]}],
		"translations":[{"lang":"French","code":"fr","word":"chat","_dis1":"0 0"}],
		"synonyms":[{"word":"moggy","_dis1":"1 2","tags":["British"]}]}],
		"descendants":[{"depth":2,"text":"Scots: cat","templates":[{"name":"desc","args":{"1":"sco","2":"cat"}}]}],
		"hyponyms":[{"word":"kitten","_dis1":"5"}],"derived":[{"word":"catlike"}]}`
	e, err := ParseLine([]byte(line))
	require.NoError(t, err)

	require.Len(t, e.Senses, 1)
	s := e.Senses[0]
	assert.Equal(t, "en-cat-noun-1", *s.ID)
	assert.Equal(t, [][]string{{"feline", "feline#English"}, {"pet"}}, s.Links)
	assert.Equal(t, "12 3", *s.Categories[0].Dis)
	assert.Equal(t, []string{"Mammals"}, s.Categories[0].Parents)
	assert.Equal(t, "0 0", *s.Translations[0].Dis1)
	assert.Equal(t, []string{"British"}, s.Synonyms[0].Tags)

	require.Len(t, e.Descendants, 1)
	assert.Equal(t, int64(2), *e.Descendants[0].Depth)
	assert.Equal(t, map[string]string{"1": "sco", "2": "cat"}, e.Descendants[0].Templates[0].Args)
	assert.Equal(t, "5", *e.Hyponyms[0].Dis1)
	assert.Equal(t, "catlike", *e.Derived[0].Word)
}

func TestParseLineRejectsMalformed(t *testing.T) {
	for _, line := range []string{``, `   `, `{"word":`, `not json`, `{"word":"x"} trailing`} {
		_, err := ParseLine([]byte(line))
		assert.Errorf(t, err, "line %q", line)
	}
}

func TestParseLineRejectsNonObject(t *testing.T) {
	for _, line := range []string{`null`, `[]`, `"word"`, `42`} {
		_, err := ParseLine([]byte(line))
		assert.Truef(t, errors.Is(err, ErrNotObject), "line %q: %v", line, err)
	}
}

func TestParseLineRejectsInvalidUTF8(t *testing.T) {
	for _, line := range []string{"{\"word\":\"caf\xe9\",\"pos\":\"noun\"}", "{\"word\":\"\xff\xfe\"}"} {
		e, err := ParseLine([]byte(line))
		assert.Nil(t, e)
		assert.Truef(t, errors.Is(err, ErrInvalidUTF8), "line %q: %v", line, err)
	}

	e, err := ParseLine([]byte(`{"word":"café"}`))
	require.NoError(t, err)
	assert.Equal(t, "café", *e.Word)
}

func TestParseLineToleratesCRLF(t *testing.T) {
	e, err := ParseLine([]byte("{\"word\":\"run\"}\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "run", *e.Word)
}

func TestGlossListRoundTrip(t *testing.T) {
	enc, err := EncodeList([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, enc)

	dec, err := DecodeList(enc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, dec)

	empty, err := EncodeList(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)

	unicode, err := EncodeList([]string{"猫 <cat>", `quote "x"`})
	require.NoError(t, err)
	back, err := DecodeList(unicode)
	require.NoError(t, err)
	assert.Equal(t, []string{"猫 <cat>", `quote "x"`}, back)
}
