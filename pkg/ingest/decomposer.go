package ingest

import (
	"context"
	"sort"

	"github.com/japaniel/kaikki/pkg/db"
	"github.com/japaniel/kaikki/pkg/wiktionary"
	"github.com/pkg/errors"
)

// RecordDecomposer writes one parsed entry and its subtree through ex.
// inserted is false when the sink suppressed the Word row as a duplicate.
type RecordDecomposer interface {
	Ingest(ctx context.Context, ex db.DBExecutor, e *wiktionary.Entry, line int64) (inserted bool, err error)
}

// ReadingSource supplies kana readings for Japanese headwords.
type ReadingSource interface {
	Reading(text string) string
}

// Decomposer maps an entry onto the normalized schema. Every parent row is
// inserted, and its id captured, before any child that references it.
type Decomposer struct {
	Store *db.Store
	// Readings is optional; when set, Japanese entries get a WordReading row.
	Readings ReadingSource
}

// NewDecomposer creates a Decomposer writing through store.
func NewDecomposer(store *db.Store) *Decomposer {
	return &Decomposer{Store: store}
}

// Ingest inserts the Word row for e at line, then its children in a fixed
// order: head templates, forms, descendants, sounds, etymology templates,
// hyponyms, derived terms, senses. Absent collections produce no rows.
func (d *Decomposer) Ingest(ctx context.Context, ex db.DBExecutor, e *wiktionary.Entry, line int64) (bool, error) {
	if e == nil {
		return false, errors.New("nil entry")
	}
	wordID, err := d.Store.Insert(ctx, ex, db.WordTable, e.Pos, e.Word, e.Lang, e.LangCode, e.EtymologyText, line)
	if err != nil {
		return false, err
	}
	if wordID == 0 {
		return false, nil
	}

	w := writer{ctx: ctx, ex: ex, store: d.Store}
	w.headTemplates(wordID, e.HeadTemplates)
	w.forms(wordID, e.Forms)
	w.descendants(wordID, e.Descendants)
	w.sounds(wordID, e.Sounds)
	w.etymologyTemplates(wordID, e.EtymologyTemplates)
	w.hyponyms(wordID, e.Hyponyms)
	w.derived(wordID, e.Derived)
	w.senses(wordID, e.Senses)
	if d.Readings != nil && e.LangCode != nil && *e.LangCode == "ja" && e.Word != nil {
		if r := d.Readings.Reading(*e.Word); r != "" {
			w.insert(db.WordReadingTable, wordID, r)
		}
	}
	if w.err != nil {
		return false, errors.Wrapf(w.err, "line %d", line)
	}
	return true, nil
}

// writer threads the first error through a run of inserts so the fan-out
// reads top to bottom. Once err is set every further insert is a no-op.
type writer struct {
	ctx   context.Context
	ex    db.DBExecutor
	store *db.Store
	err   error
}

func (w *writer) insert(t db.Table, args ...any) int64 {
	if w.err != nil {
		return 0
	}
	id, err := w.store.Insert(w.ctx, w.ex, t, args...)
	if err != nil {
		w.err = err
		return 0
	}
	return id
}

func (w *writer) headTemplates(wordID int64, templates []wiktionary.Template) {
	for _, t := range templates {
		w.insert(db.HeadTemplateTable, wordID, t.Name, t.Expansion)
	}
}

func (w *writer) forms(wordID int64, forms []wiktionary.Form) {
	for _, f := range forms {
		formID := w.insert(db.FormTable, wordID, f.Form)
		if formID == 0 {
			continue
		}
		w.tags(db.FormTagTable, formID, f.Tags)
	}
}

func (w *writer) tags(t db.Table, parentID int64, tags []string) {
	for _, tag := range tags {
		w.insert(t, parentID, tag)
	}
}

func (w *writer) descendants(wordID int64, descendants []wiktionary.Descendant) {
	for _, desc := range descendants {
		descID := w.insert(db.DescendantTable, wordID, desc.Depth, desc.Text)
		if descID == 0 {
			continue
		}
		for _, t := range desc.Templates {
			templateID := w.insert(db.DescendantTemplateTable, descID, t.Name, t.Expansion)
			if templateID == 0 {
				continue
			}
			w.args(db.DescendantTemplateArgsTable, templateID, t.Args)
		}
	}
}

// args stores template arguments in key order so repeated loads of the same
// feed produce identical row orderings.
func (w *writer) args(t db.Table, templateID int64, args map[string]string) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.insert(t, templateID, k, args[k])
	}
}

func (w *writer) sounds(wordID int64, sounds []wiktionary.Sound) {
	for _, s := range sounds {
		soundID := w.insert(db.SoundTable, wordID,
			s.IPA, s.Homophone, s.Rhymes, s.Note, s.Audio, s.OggURL, s.MP3URL, s.Enpr)
		if soundID == 0 {
			continue
		}
		w.tags(db.SoundTagTable, soundID, s.Tags)
	}
}

func (w *writer) etymologyTemplates(wordID int64, templates []wiktionary.Template) {
	for _, t := range templates {
		templateID := w.insert(db.EtymologyTemplateTable, wordID, t.Name, t.Expansion)
		if templateID == 0 {
			continue
		}
		w.args(db.EtymologyTemplateArgsTable, templateID, t.Args)
	}
}

func (w *writer) hyponyms(wordID int64, hyponyms []wiktionary.Linkage) {
	for _, h := range hyponyms {
		w.insert(db.HyponymTable, wordID, h.Word, h.Dis1)
	}
}

func (w *writer) derived(wordID int64, derived []wiktionary.Linkage) {
	for _, d := range derived {
		w.insert(db.DerivedTable, wordID, d.Word)
	}
}

func (w *writer) senses(wordID int64, senses []wiktionary.Sense) {
	for _, s := range senses {
		if w.err != nil {
			return
		}
		raw, err := wiktionary.EncodeList(s.RawGlosses)
		if err != nil {
			w.err = err
			return
		}
		glosses, err := wiktionary.EncodeList(s.Glosses)
		if err != nil {
			w.err = err
			return
		}
		senseID := w.insert(db.SenseTable, wordID, raw, glosses, s.ID)
		if senseID == 0 {
			continue
		}
		for _, link := range s.Links {
			w.insert(db.SenseLinkTable, senseID, element(link, 0), element(link, 1))
		}
		for _, topic := range s.Topics {
			w.insert(db.SenseTopicTable, senseID, topic)
		}
		for _, c := range s.Categories {
			categoryID := w.insert(db.SenseCategoryTable, senseID,
				c.Name, c.Kind, c.Source, c.Orig, c.Langcode, c.Dis)
			if categoryID == 0 {
				continue
			}
			for _, parent := range c.Parents {
				w.insert(db.SenseCategoryParentTable, categoryID, parent)
			}
		}
		for _, t := range s.Translations {
			w.insert(db.SenseTranslationTable, senseID, t.Lang, t.Code, t.Sense, t.Roman, t.Word, t.Dis1)
		}
		for _, syn := range s.Synonyms {
			synonymID := w.insert(db.SenseSynonymTable, senseID, syn.Sense, syn.Word, syn.Dis1)
			if synonymID == 0 {
				continue
			}
			w.tags(db.SenseSynonymTagTable, synonymID, syn.Tags)
		}
	}
}

// element returns the i-th member of a link pair, or nil when the pair is short.
func element(pair []string, i int) *string {
	if i >= len(pair) {
		return nil
	}
	return &pair[i]
}
