// Package parser extracts frontmatter metadata from Markdown content. It is
// best-effort: malformed input yields no metadata, never an error, because
// node files are hand-edited.
package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing a node file.
type Result struct {
	Description string
	Tags        []string
	Body        string
}

// Parse splits raw Markdown into frontmatter metadata and body. Recognized
// frontmatter keys are "description" and "tags". Content without a leading
// --- fence has no metadata and the whole input is the body.
func Parse(data []byte) Result {
	fm, body := splitFrontmatter(data)
	if fm == nil {
		return Result{Body: body}
	}

	res := Result{Body: body}
	if raw, ok := fm["description"]; ok {
		if s, ok := raw.(string); ok {
			res.Description = strings.TrimSpace(s)
		}
	}
	res.Tags = tagList(fm["tags"])
	return res
}

// Body returns just the content body with any frontmatter stripped.
func Body(data []byte) string {
	_, body := splitFrontmatter(data)
	return body
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found, or the YAML block does
// not decode, the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}

	return fm, body
}

// tagList normalizes a frontmatter tags value: list items are trimmed and
// empties dropped. Both block lists and [a, b, c] flow lists decode to the
// same slice.
func tagList(raw interface{}) []string {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
