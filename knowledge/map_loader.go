package knowledge

import (
	"io"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
)

// entrySpec is the loose shape accepted from corpus files. Unknown keys are
// ignored so corpus documents can carry extra metadata.
type entrySpec struct {
	ID          string   `mapstructure:"id"`
	Title       string   `mapstructure:"title"`
	Content     string   `mapstructure:"content"`
	Category    string   `mapstructure:"category"`
	Tags        []string `mapstructure:"tags"`
	SourceType  string   `mapstructure:"source_type"`
	SourceFile  string   `mapstructure:"source_file"`
	DocumentID  string   `mapstructure:"document_id"`
	SectionID   string   `mapstructure:"section_id"`
	SectionType string   `mapstructure:"section_type"`
}

// EntriesFromMaps converts loosely typed corpus maps into knowledge entries.
// Entries without content are skipped; missing category defaults to general,
// missing source type to json, and missing IDs are derived from content so
// reloading the same corpus is idempotent.
func EntriesFromMaps(data []map[string]any, sourceFile string) ([]*KnowledgeEntry, error) {
	now := time.Now()
	entries := make([]*KnowledgeEntry, 0, len(data))
	for _, item := range data {
		var spec entrySpec
		if err := mapstructure.Decode(item, &spec); err != nil {
			return nil, errors.Wrapf(err, "failed to decode knowledge entry")
		}
		if spec.Content == "" {
			continue
		}

		if spec.SourceFile == "" {
			spec.SourceFile = sourceFile
		}
		category := Category(spec.Category)
		if !category.Valid() {
			category = CategoryGeneral
		}
		sourceType := SourceType(spec.SourceType)
		if sourceType == "" {
			sourceType = SourceTypeJSON
		}
		id := spec.ID
		if id == "" {
			id = EntryID(spec.SourceFile, spec.Title, spec.Content)
		}

		entries = append(entries, &KnowledgeEntry{
			ID:          id,
			Title:       spec.Title,
			Content:     spec.Content,
			Category:    category,
			Tags:        spec.Tags,
			SourceType:  sourceType,
			SourceFile:  spec.SourceFile,
			DocumentID:  spec.DocumentID,
			SectionID:   spec.SectionID,
			SectionType: spec.SectionType,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return entries, nil
}

// corpusFile is the YAML corpus document shape: either a bare list of
// entries or a document with an `entries` key.
type corpusFile struct {
	Entries []map[string]any `yaml:"entries"`
}

// LoadYAMLCorpus reads one YAML corpus document and converts it to entries.
func LoadYAMLCorpus(r io.Reader, sourceFile string) ([]*KnowledgeEntry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read corpus file %s", sourceFile)
	}

	var file corpusFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		var list []map[string]any
		if listErr := yaml.Unmarshal(raw, &list); listErr != nil {
			return nil, errors.Wrapf(err, "failed to parse corpus file %s", sourceFile)
		}
		file.Entries = list
	}

	return EntriesFromMaps(file.Entries, sourceFile)
}
