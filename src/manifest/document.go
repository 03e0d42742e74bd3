// Package manifest reads, walks and rewrites the deployment manifest: a
// nested YAML document of repository groups whose leaves record the commit
// currently deployed for each repository.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Leaf keys.
const (
	KeyMarker = "gitlab"
	KeyRepo   = "drone_repo"
	KeyTag    = "tag"
)

// ErrInvalidManifest is returned when the document cannot be parsed or a
// leaf is malformed.
var ErrInvalidManifest = errors.New("invalid manifest")

// Node is one entry of the document: either a group of further entries or a
// leaf. Exactly one of Children and Leaf is set.
type Node struct {
	Key      string
	Children []*Node
	Leaf     *Leaf
}

// IsLeaf reports whether the node is a terminal repository entry.
func (n *Node) IsLeaf() bool {
	return n.Leaf != nil
}

// Leaf maps one repository to the commit deployed for it.
type Leaf struct {
	GitLab bool
	Repo   string
	Tag    string

	mapping *yaml.Node
	tag     *yaml.Node
}

// SetTag records commit as the deployed tag, adding the tag key when the
// leaf has none.
func (l *Leaf) SetTag(commit string) {
	l.Tag = commit
	if l.tag == nil {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: KeyTag}
		l.tag = &yaml.Node{Kind: yaml.ScalarNode}
		l.mapping.Content = append(l.mapping.Content, key, l.tag)
	}
	l.tag.Tag = "!!str"
	l.tag.Style = 0
	l.tag.Value = commit
}

// Document is a parsed manifest. Leaf tag changes are written back into the
// underlying YAML tree so encoding preserves key order and comments.
type Document struct {
	Root []*Node
	raw  *yaml.Node
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse parses a manifest and validates every leaf.
func Parse(data []byte) (*Document, error) {
	var raw yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidManifest)
	}

	top := raw.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidManifest)
	}

	root, err := parseGroup(top, "")
	if err != nil {
		return nil, err
	}
	return &Document{Root: root, raw: &raw}, nil
}

func parseGroup(m *yaml.Node, path string) ([]*Node, error) {
	var nodes []*Node
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		value := m.Content[i+1]
		if value.Kind == yaml.AliasNode && value.Alias != nil {
			value = value.Alias
		}
		if value.Kind != yaml.MappingNode {
			continue
		}

		at := key
		if path != "" {
			at = path + "." + key
		}

		if lookup(value, KeyMarker) != nil {
			leaf, err := parseLeaf(value, at)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &Node{Key: key, Leaf: leaf})
			continue
		}

		children, err := parseGroup(value, at)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &Node{Key: key, Children: children})
	}
	return nodes, nil
}

func parseLeaf(m *yaml.Node, path string) (*Leaf, error) {
	leaf := &Leaf{mapping: m}

	marker := lookup(m, KeyMarker)
	if marker.Kind == yaml.AliasNode && marker.Alias != nil {
		marker = marker.Alias
	}
	if marker.Kind != yaml.ScalarNode || marker.ShortTag() != "!!bool" || marker.Decode(&leaf.GitLab) != nil {
		return nil, fmt.Errorf("%w: %s: %s must be true or false", ErrInvalidManifest, path, KeyMarker)
	}

	repo := lookup(m, KeyRepo)
	if repo == nil || repo.Kind != yaml.ScalarNode || repo.Value == "" {
		return nil, fmt.Errorf("%w: %s: %s is required", ErrInvalidManifest, path, KeyRepo)
	}
	leaf.Repo = repo.Value

	if tag := lookup(m, KeyTag); tag != nil {
		if tag.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: %s: %s must be a string", ErrInvalidManifest, path, KeyTag)
		}
		leaf.tag = tag
		if tag.Tag != "!!null" {
			leaf.Tag = tag.Value
		}
	}
	return leaf, nil
}

// lookup returns the value node for key in mapping m.
func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// Leaves returns every leaf in document order.
func (d *Document) Leaves() []*Leaf {
	var out []*Leaf
	var visit func([]*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			if n.IsLeaf() {
				out = append(out, n.Leaf)
				continue
			}
			visit(n.Children)
		}
	}
	visit(d.Root)
	return out
}

// Encode serializes the document, including any updated tags.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.raw); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}
