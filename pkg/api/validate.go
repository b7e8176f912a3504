package api

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed schema/manifest.schema.json
var schemaBytes []byte

const schemaURL = "manifest.schema.json"

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate checks a manifest document and returns every issue found.
// A nil result means ParseManifest accepts the document.
func Validate(data []byte) []Issue {
	root, issue := decodeDocument(data)
	if issue != nil {
		return []Issue{*issue}
	}
	return validateNode(root)
}

func decodeDocument(data []byte) (*yaml.Node, *Issue) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Issue{Message: fmt.Sprintf("parsing YAML: %v", err)}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, &Issue{Message: "manifest is empty"}
	}

	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, &Issue{Line: root.Line, Message: fmt.Sprintf("manifest must be a mapping, got %s", kindName(root))}
	}
	return root, nil
}

// validateNode runs the duplicate key check first: once decoded into a map,
// a repeated job name silently replaces the earlier one.
func validateNode(root *yaml.Node) []Issue {
	if issues := duplicateKeys(root, ""); len(issues) > 0 {
		return issues
	}
	return schemaIssues(root)
}

func duplicateKeys(n *yaml.Node, path string) []Issue {
	var issues []Issue
	switch n.Kind {
	case yaml.MappingNode:
		seen := make(map[string]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if first, ok := seen[key.Value]; ok {
				issues = append(issues, Issue{
					Path:    path + "/" + key.Value,
					Line:    key.Line,
					Message: fmt.Sprintf("duplicate key %q (first defined at line %d)", key.Value, first),
				})
				continue
			}
			seen[key.Value] = key.Line
			issues = append(issues, duplicateKeys(n.Content[i+1], path+"/"+key.Value)...)
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			issues = append(issues, duplicateKeys(item, path+"/"+strconv.Itoa(i))...)
		}
	}
	return issues
}

func schemaIssues(root *yaml.Node) []Issue {
	schema, err := getSchema()
	if err != nil {
		return []Issue{{Message: fmt.Sprintf("loading schema: %v", err)}}
	}

	jsonData, err := json.Marshal(nodeValue(root))
	if err != nil {
		return []Issue{{Message: fmt.Sprintf("converting to JSON: %v", err)}}
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return []Issue{{Message: fmt.Sprintf("preparing JSON for validation: %v", err)}}
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Issue{{Message: err.Error()}}
	}

	var issues []Issue
	collectIssues(ve, &issues)
	if len(issues) == 0 {
		issues = append(issues, Issue{Message: ve.Error()})
	}

	for i := range issues {
		if n := nodeAt(root, issues[i].Path); n != nil {
			issues[i].Line = n.Line
		}
	}
	issues = dedupeIssues(issues)
	slices.SortStableFunc(issues, func(a, b Issue) int { return a.Line - b.Line })
	return issues
}

func collectIssues(ve *jsonschema.ValidationError, issues *[]Issue) {
	path := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}

	if len(ve.Causes) == 0 {
		if ve.ErrorKind == nil {
			return
		}
		*issues = append(*issues, Issue{Path: path, Message: ve.ErrorKind.LocalizedString(printer)})
		return
	}

	if _, ok := ve.ErrorKind.(*kind.OneOf); ok {
		causes, wanted := branchesOf(ve)
		if len(causes) == 0 {
			*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf("got %s, want %s", gotType(ve), strings.Join(wanted, " or "))})
			return
		}
		for _, c := range causes {
			collectIssues(c, issues)
		}
		return
	}

	for _, c := range ve.Causes {
		collectIssues(c, issues)
	}
}

// branchesOf drops the oneOf branches that failed only because the value has
// another type; they say nothing about what is wrong with the value itself.
// When every branch is a type mismatch the wanted types are returned instead.
func branchesOf(ve *jsonschema.ValidationError) ([]*jsonschema.ValidationError, []string) {
	var (
		kept   []*jsonschema.ValidationError
		wanted []string
	)
	for _, c := range ve.Causes {
		if t := typeMismatch(c, ve.InstanceLocation); t != nil {
			for _, w := range t.Want {
				if !slices.Contains(wanted, w) {
					wanted = append(wanted, w)
				}
			}
			continue
		}
		kept = append(kept, c)
	}
	return kept, wanted
}

// typeMismatch reports the type error of a branch that rejected the value at
// loc itself, not one of its children.
func typeMismatch(ve *jsonschema.ValidationError, loc []string) *kind.Type {
	for len(ve.Causes) == 1 {
		ve = ve.Causes[0]
	}
	if len(ve.Causes) > 0 || !slices.Equal(ve.InstanceLocation, loc) {
		return nil
	}
	t, _ := ve.ErrorKind.(*kind.Type)
	return t
}

func gotType(ve *jsonschema.ValidationError) string {
	for _, c := range ve.Causes {
		if t := typeMismatch(c, ve.InstanceLocation); t != nil {
			return t.Got
		}
	}
	return "value"
}

func dedupeIssues(issues []Issue) []Issue {
	seen := make(map[string]bool, len(issues))
	result := issues[:0]
	for _, i := range issues {
		key := i.Path + "|" + i.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, i)
	}
	return result
}

// nodeValue converts a YAML node into JSON-compatible values for the schema
// validator. Mapping keys are always taken as their literal text.
func nodeValue(n *yaml.Node) any {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return nodeValue(n.Content[0])
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			m[n.Content[i].Value] = nodeValue(n.Content[i+1])
		}
		return m
	case yaml.SequenceNode:
		a := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			a = append(a, nodeValue(item))
		}
		return a
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return n.Value
		}
		switch val := v.(type) {
		case nil, bool, string, int, int64, uint64:
			return val
		case float64:
			if math.IsInf(val, 0) || math.IsNaN(val) {
				return n.Value
			}
			return val
		default:
			return n.Value
		}
	}
	return nil
}

// nodeAt returns the node addressed by a slash separated instance path.
func nodeAt(root *yaml.Node, path string) *yaml.Node {
	n := root
	for _, tok := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		if tok == "" {
			continue
		}
		n = resolveAlias(n)
		switch n.Kind {
		case yaml.MappingNode:
			var next *yaml.Node
			for i := 0; i+1 < len(n.Content); i += 2 {
				if n.Content[i].Value == tok {
					next = n.Content[i+1]
					break
				}
			}
			if next == nil {
				return n
			}
			n = next
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(n.Content) {
				return n
			}
			n = n.Content[idx]
		default:
			return n
		}
	}
	return n
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		if isNull(n) {
			return "null"
		}
		return "scalar"
	default:
		return "unknown node"
	}
}
