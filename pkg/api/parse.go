package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadManifest reads a manifest file, validates it and sets FilePath.
func LoadManifest(filename string) (*Manifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		var me *ManifestError
		if errors.As(err, &me) {
			me.File = filename
		}
		return nil, err
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	m.FilePath = absPath

	return m, nil
}

// ParseManifest decodes and validates a manifest document. Jobs keep their
// declaration order. Any problem is reported as a *ManifestError.
func ParseManifest(data []byte) (*Manifest, error) {
	root, issue := decodeDocument(data)
	if issue != nil {
		return nil, &ManifestError{Issues: []Issue{*issue}}
	}
	if issues := validateNode(root); len(issues) > 0 {
		return nil, &ManifestError{Issues: issues}
	}
	return buildManifest(root)
}

func buildManifest(root *yaml.Node) (*Manifest, error) {
	m := &Manifest{Env: map[string]string{}}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], resolveAlias(root.Content[i+1])

		if key.Value == KeyEnv {
			env, err := buildEnv(val, "/"+KeyEnv)
			if err != nil {
				return nil, err
			}
			m.Env = env
			continue
		}

		job, err := buildJob(key, val)
		if err != nil {
			return nil, err
		}
		m.Jobs = append(m.Jobs, job)
	}

	return m, nil
}

func buildJob(key, val *yaml.Node) (*Job, error) {
	name := key.Value
	if name == "" {
		return nil, manifestErrorf(key.Line, "/", "job name is required")
	}

	job := &Job{Name: name, Env: map[string]string{}}
	path := "/" + name

	switch {
	case isNull(val):
	case val.Kind == yaml.SequenceNode:
		steps, err := buildSteps(val, path)
		if err != nil {
			return nil, err
		}
		job.Steps = steps
	case val.Kind == yaml.MappingNode:
		for i := 0; i+1 < len(val.Content); i += 2 {
			k, v := val.Content[i], resolveAlias(val.Content[i+1])
			switch k.Value {
			case KeyEnv:
				env, err := buildEnv(v, path+"/"+KeyEnv)
				if err != nil {
					return nil, err
				}
				job.Env = env
			case KeyCommands:
				if isNull(v) {
					continue
				}
				steps, err := buildSteps(v, path+"/"+KeyCommands)
				if err != nil {
					return nil, err
				}
				job.Steps = steps
			default:
				return nil, manifestErrorf(k.Line, path+"/"+k.Value, "unknown job key %q", k.Value)
			}
		}
	default:
		return nil, manifestErrorf(val.Line, path, "job must be a mapping or a list of commands, got %s", kindName(val))
	}

	job.Retired = len(job.Steps) == 0
	return job, nil
}

func buildEnv(n *yaml.Node, path string) (map[string]string, error) {
	env := map[string]string{}
	if isNull(n) {
		return env, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, manifestErrorf(n.Line, path, "env must be a mapping, got %s", kindName(n))
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], resolveAlias(n.Content[i+1])
		if v.Kind != yaml.ScalarNode || isNull(v) {
			return nil, manifestErrorf(v.Line, path+"/"+k.Value, "env value must be a string, got %s", kindName(v))
		}
		env[k.Value] = v.Value
	}
	return env, nil
}

// rawStep is the annotated form of a command entry.
type rawStep struct {
	Run           string `yaml:"run"`
	AlwaysSucceed bool   `yaml:"always-succeed"`
}

func buildSteps(n *yaml.Node, path string) ([]Step, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, manifestErrorf(n.Line, path, "commands must be a list, got %s", kindName(n))
	}

	steps := make([]Step, 0, len(n.Content))
	for i, item := range n.Content {
		item = resolveAlias(item)
		switch {
		case item.Kind == yaml.ScalarNode && !isNull(item):
			steps = append(steps, Step{Run: item.Value})
		case item.Kind == yaml.MappingNode:
			var rs rawStep
			if err := item.Decode(&rs); err != nil {
				return nil, manifestErrorf(item.Line, fmt.Sprintf("%s/%d", path, i), "decoding command: %v", err)
			}
			steps = append(steps, Step{Run: rs.Run, AlwaysSucceed: rs.AlwaysSucceed})
		default:
			return nil, manifestErrorf(item.Line, fmt.Sprintf("%s/%d", path, i), "command must be a string, got %s", kindName(item))
		}
	}
	return steps, nil
}
