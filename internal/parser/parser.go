// Package parser extracts frontmatter properties from Markdown content.
package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/propindex/internal/models"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	// Properties are the frontmatter records in document order.
	Properties []models.Property
	Body       string
}

// Parse extracts frontmatter properties and the body from raw Markdown bytes.
// Content without frontmatter, or with invalid YAML, yields no properties.
func Parse(data []byte) (*Result, error) {
	root, body := splitFrontmatter(data)
	return &Result{
		Properties: properties(root),
		Body:       body,
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (*yaml.Node, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var doc yaml.Node
	if err := yaml.Unmarshal(yamlBlock, &doc); err != nil {
		return nil, string(data)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		// Empty frontmatter block.
		return nil, body
	}
	return doc.Content[0], body
}

// properties flattens a frontmatter mapping into ordered records. Sequences
// produce one record per element; nested mappings mark the key as present.
func properties(root *yaml.Node) []models.Property {
	root = resolve(root)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil
	}

	var out []models.Property
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode := resolve(root.Content[i])
		if keyNode == nil || keyNode.Kind != yaml.ScalarNode {
			continue
		}
		key := keyNode.Value
		value := resolve(root.Content[i+1])
		if value == nil {
			out = append(out, models.Property{Key: key})
			continue
		}

		switch value.Kind {
		case yaml.SequenceNode:
			if len(value.Content) == 0 {
				out = append(out, models.Property{Key: key, Kind: models.KindList})
				continue
			}
			for _, item := range value.Content {
				out = append(out, record(key, resolve(item)))
			}
		default:
			out = append(out, record(key, value))
		}
	}
	return out
}

func record(key string, n *yaml.Node) models.Property {
	if n == nil {
		return models.Property{Key: key}
	}
	switch n.Kind {
	case yaml.ScalarNode:
		kind := scalarKind(n)
		if kind == models.KindUnknown {
			return models.Property{Key: key}
		}
		return models.Property{Key: key, Value: n.Value, Kind: kind}
	case yaml.SequenceNode:
		return models.Property{Key: key, Kind: models.KindList}
	default:
		return models.Property{Key: key, Kind: models.KindObject}
	}
}

func scalarKind(n *yaml.Node) models.ValueKind {
	switch n.ShortTag() {
	case "!!bool":
		return models.KindBoolean
	case "!!str":
		return models.KindText
	case "!!int", "!!float":
		return models.KindNumber
	case "!!timestamp":
		return models.KindDate
	case "!!null":
		return models.KindUnknown
	default:
		// Custom tags keep their literal text.
		return models.KindText
	}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}
