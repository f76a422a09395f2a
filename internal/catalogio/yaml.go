package catalogio

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/domain"
)

// yamlRecord is the on-disk shape of one catalog entry.
type yamlRecord struct {
	Prefix string `yaml:"prefix"`
	Model  string `yaml:"model"`
}

// ReadYAML decodes a top-level sequence of {prefix, model} mappings. An empty
// document is an empty catalog. Entries that are not mappings are returned as
// ImportLines with empty fields so the import counts them as malformed; line
// numbers come from the YAML node positions.
func ReadYAML(r io.Reader) ([]app.ImportLine, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of prefix records", seq.Line)
	}
	out := make([]app.ImportLine, 0, len(seq.Content))
	for _, item := range seq.Content {
		var rec yamlRecord
		if item.Kind == yaml.MappingNode {
			if err := item.Decode(&rec); err != nil {
				rec = yamlRecord{}
			}
		}
		out = append(out, app.ImportLine{Number: item.Line, Prefix: rec.Prefix, Model: rec.Model})
	}
	return out, nil
}

// WriteYAML encodes recs as a sequence of {prefix, model} mappings.
func WriteYAML(w io.Writer, recs []domain.PrefixRecord) error {
	out := make([]yamlRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, yamlRecord{Prefix: r.Prefix.String(), Model: r.Model})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
