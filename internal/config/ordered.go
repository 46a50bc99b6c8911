package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PrefixRule replaces Prefix with Replacement at the start of a manifest URL.
type PrefixRule struct {
	Prefix      string
	Replacement string
}

// PrefixRules is an ordered modifyUrlPrefix mapping. The first matching rule
// wins, so order is significant and is preserved from the config file.
type PrefixRules []PrefixRule

// TemplatedURL maps a URL that is not backed by one file to its revision
// source: either the combined content of the files matched by Patterns, or a
// literal Version.
type TemplatedURL struct {
	URL      string
	Patterns []string
	Version  string
}

// IsLiteral reports whether the revision is a caller supplied string.
func (t TemplatedURL) IsLiteral() bool {
	return t.Patterns == nil
}

// TemplatedURLs is an ordered templatedUrls mapping.
type TemplatedURLs []TemplatedURL

// UnmarshalJSON decodes a JSON object keeping key order.
func (r *PrefixRules) UnmarshalJSON(data []byte) error {
	rules := PrefixRules{}
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var replacement string
		if err := json.Unmarshal(raw, &replacement); err != nil {
			return fmt.Errorf("modifyUrlPrefix[%q]: replacement must be a string", key)
		}
		rules = append(rules, PrefixRule{Prefix: key, Replacement: replacement})
		return nil
	})
	if err != nil {
		return err
	}
	*r = rules
	return nil
}

// MarshalJSON encodes the rules as a JSON object in rule order.
func (r PrefixRules) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, len(r))
	for i, rule := range r {
		pairs[i] = [2]any{rule.Prefix, rule.Replacement}
	}
	return encodeOrderedObject(pairs)
}

// UnmarshalYAML decodes a YAML mapping keeping key order.
func (r *PrefixRules) UnmarshalYAML(value *yaml.Node) error {
	rules := PrefixRules{}
	err := decodeOrderedMapping(value, func(key string, node *yaml.Node) error {
		var replacement string
		if err := node.Decode(&replacement); err != nil {
			return fmt.Errorf("modifyUrlPrefix[%q]: replacement must be a string", key)
		}
		rules = append(rules, PrefixRule{Prefix: key, Replacement: replacement})
		return nil
	})
	if err != nil {
		return err
	}
	*r = rules
	return nil
}

// MarshalYAML encodes the rules as a YAML mapping in rule order.
func (r PrefixRules) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, rule := range r {
		node.Content = append(node.Content, scalar(rule.Prefix), scalar(rule.Replacement))
	}
	return node, nil
}

// UnmarshalJSON decodes a JSON object whose values are a version string or
// an array of glob patterns.
func (t *TemplatedURLs) UnmarshalJSON(data []byte) error {
	urls := TemplatedURLs{}
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		entry := TemplatedURL{URL: key}
		trimmed := bytes.TrimSpace(raw)
		switch {
		case len(trimmed) > 0 && trimmed[0] == '"':
			if err := json.Unmarshal(trimmed, &entry.Version); err != nil {
				return err
			}
		case len(trimmed) > 0 && trimmed[0] == '[':
			entry.Patterns = []string{}
			if err := json.Unmarshal(trimmed, &entry.Patterns); err != nil {
				return fmt.Errorf("templatedUrls[%q]: patterns must be strings", key)
			}
		default:
			return fmt.Errorf("templatedUrls[%q]: value must be a string or an array of patterns", key)
		}
		urls = append(urls, entry)
		return nil
	})
	if err != nil {
		return err
	}
	*t = urls
	return nil
}

// MarshalJSON encodes the mapping in declaration order.
func (t TemplatedURLs) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, len(t))
	for i, u := range t {
		if u.IsLiteral() {
			pairs[i] = [2]any{u.URL, u.Version}
		} else {
			pairs[i] = [2]any{u.URL, u.Patterns}
		}
	}
	return encodeOrderedObject(pairs)
}

// UnmarshalYAML decodes a YAML mapping whose values are a version string or
// a sequence of glob patterns.
func (t *TemplatedURLs) UnmarshalYAML(value *yaml.Node) error {
	urls := TemplatedURLs{}
	err := decodeOrderedMapping(value, func(key string, node *yaml.Node) error {
		entry := TemplatedURL{URL: key}
		switch node.Kind {
		case yaml.ScalarNode:
			entry.Version = node.Value
		case yaml.SequenceNode:
			entry.Patterns = []string{}
			if err := node.Decode(&entry.Patterns); err != nil {
				return fmt.Errorf("templatedUrls[%q]: patterns must be strings", key)
			}
		default:
			return fmt.Errorf("templatedUrls[%q]: value must be a string or a list of patterns", key)
		}
		urls = append(urls, entry)
		return nil
	})
	if err != nil {
		return err
	}
	*t = urls
	return nil
}

// MarshalYAML encodes the mapping in declaration order.
func (t TemplatedURLs) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, u := range t {
		var value yaml.Node
		if u.IsLiteral() {
			value = *scalar(u.Version)
		} else if err := value.Encode(u.Patterns); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, scalar(u.URL), &value)
	}
	return node, nil
}

func decodeOrderedObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func encodeOrderedObject(pairs [][2]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pair := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pair[0])
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(pair[1])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeOrderedMapping(value *yaml.Node, fn func(key string, node *yaml.Node) error) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if err := fn(value.Content[i].Value, value.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
