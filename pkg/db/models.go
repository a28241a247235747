package db

// Table describes an insertable relation: its name and the columns supplied
// on insert, in argument order. The generated id column is never listed.
type Table struct {
	Name    string
	Columns []string
}

var (
	WordTable                   = Table{"Word", []string{"pos", "word", "lang", "lang_code", "etymology_text", "line_number"}}
	HeadTemplateTable           = Table{"HeadTemplate", []string{"word_id", "name", "expansion"}}
	FormTable                   = Table{"Form", []string{"word_id", "form"}}
	FormTagTable                = Table{"FormTag", []string{"form_id", "tag"}}
	DescendantTable             = Table{"Descendant", []string{"word_id", "depth", "text"}}
	DescendantTemplateTable     = Table{"DescendantTemplate", []string{"descendant_id", "name", "expansion"}}
	DescendantTemplateArgsTable = Table{"DescendantTemplateArgs", []string{"descendant_template_id", "arg_key", "arg_value"}}
	SoundTable                  = Table{"Sound", []string{"word_id", "ipa", "homophone", "rhymes", "note", "audio", "ogg_url", "mp3_url", "enpr"}}
	SoundTagTable               = Table{"SoundTag", []string{"sound_id", "tag"}}
	EtymologyTemplateTable      = Table{"EtymologyTemplate", []string{"word_id", "name", "expansion"}}
	EtymologyTemplateArgsTable  = Table{"EtymologyTemplateArgs", []string{"etymology_template_id", "arg_key", "arg_value"}}
	HyponymTable                = Table{"Hyponym", []string{"word_id", "word", "dis1"}}
	DerivedTable                = Table{"Derived", []string{"word_id", "word"}}
	SenseTable                  = Table{"Sense", []string{"word_id", "raw_glosses", "glosses", "id_key"}}
	SenseLinkTable              = Table{"SenseLink", []string{"sense_id", "link1", "link2"}}
	SenseTopicTable             = Table{"SenseTopic", []string{"sense_id", "topic"}}
	SenseCategoryTable          = Table{"SenseCategory", []string{"sense_id", "name", "kind", "source", "orig", "langcode", "dis"}}
	SenseCategoryParentTable    = Table{"SenseCategoryParent", []string{"category_id", "parent"}}
	SenseTranslationTable       = Table{"SenseTranslation", []string{"sense_id", "lang", "code", "sense", "roman", "word", "dis1"}}
	SenseSynonymTable           = Table{"SenseSynonym", []string{"sense_id", "sense", "word", "dis1"}}
	SenseSynonymTagTable        = Table{"SenseSynonymTag", []string{"synonym_id", "tag"}}
	WordReadingTable            = Table{"WordReading", []string{"word_id", "reading"}}
)

// EntryTables lists every table populated from feed documents, parents first.
var EntryTables = []Table{
	WordTable,
	HeadTemplateTable,
	FormTable,
	FormTagTable,
	DescendantTable,
	DescendantTemplateTable,
	DescendantTemplateArgsTable,
	SoundTable,
	SoundTagTable,
	EtymologyTemplateTable,
	EtymologyTemplateArgsTable,
	HyponymTable,
	DerivedTable,
	SenseTable,
	SenseLinkTable,
	SenseTopicTable,
	SenseCategoryTable,
	SenseCategoryParentTable,
	SenseTranslationTable,
	SenseSynonymTable,
	SenseSynonymTagTable,
	WordReadingTable,
}

// TableCount is the number of rows held by one table.
type TableCount struct {
	Table string
	Rows  int64
}

// Run is the bookkeeping row kept for one ingestion pass.
type Run struct {
	ID         string
	Feed       string
	StartLine  int64
	LastLine   int64
	Ingested   int64
	Failed     int64
	StartedAt  string
	FinishedAt string
}
