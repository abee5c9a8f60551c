package filestore

import (
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// insertDefinition binds named insert values to one node. This is the
// legacy, file-only composition path: {{insert:KEY}} placeholders in the
// node's body are expanded from these definitions rather than from graph
// edges.
type insertDefinition struct {
	Node    string       `yaml:"node"`
	Inserts []insertSpec `yaml:"inserts"`
}

type insertSpec struct {
	Key    string   `yaml:"key"`
	Values []string `yaml:"values"`
}

var insertPlaceholderRe = regexp.MustCompile(`\{\{insert:([a-zA-Z][a-zA-Z0-9_]*)\}\}`)

// loadInsertDefinitions reads content/inserts/inserts.yaml. A missing or
// malformed file means no definitions; that is never an error.
func (s *FileStore) loadInsertDefinitions() []insertDefinition {
	path := s.abs(insertsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Cannot read insert definitions", zap.String("path", path), zap.Error(err))
		}
		return nil
	}

	var defs []insertDefinition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		s.logger.Warn("Malformed insert definitions", zap.String("path", path), zap.Error(err))
		return nil
	}
	return defs
}

// applyInserts expands {{insert:KEY}} placeholders in the node's body from
// its insert definitions, joining each definition's values with newlines.
// Placeholders without a matching definition are left as-is.
func (s *FileStore) applyInserts(nodeName, body string) string {
	if body == "" || !strings.Contains(body, "{{insert:") {
		return body
	}

	values := make(map[string]string)
	for _, def := range s.loadInsertDefinitions() {
		if def.Node != nodeName {
			continue
		}
		for _, spec := range def.Inserts {
			values[spec.Key] = strings.Join(spec.Values, "\n")
		}
	}
	if len(values) == 0 {
		return body
	}

	return insertPlaceholderRe.ReplaceAllStringFunc(body, func(match string) string {
		key := match[len("{{insert:") : len(match)-2]
		if value, ok := values[key]; ok {
			return value
		}
		return match
	})
}
