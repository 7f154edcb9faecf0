package ingest

import (
	"os"
	"sort"

	"github.com/mikey/forensic-intel/internal/core"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type documentFile struct {
	Documents []core.LegalDocument `yaml:"documents"`
}

// LoadDocuments reads legal documents from a YAML file holding either a top-level
// list or a "documents" key. Documents come back ordered by ID.
func LoadDocuments(path string) ([]core.LegalDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "documents: read %s", path)
	}

	var docs []core.LegalDocument
	if err := yaml.Unmarshal(data, &docs); err != nil {
		var file documentFile
		if ferr := yaml.Unmarshal(data, &file); ferr != nil {
			return nil, eris.Wrapf(ferr, "documents: parse %s", path)
		}
		docs = file.Documents
	}

	for i, d := range docs {
		if d.ID == "" {
			return nil, eris.Errorf("documents: %s: entry %d has no id", path, i)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}
