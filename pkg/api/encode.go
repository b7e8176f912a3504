package api

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Encode serializes the manifest back to YAML. Jobs keep their declaration
// order; env keys are written sorted.
func Encode(m *Manifest) ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return data, nil
}

// MarshalYAML implements yaml.Marshaler.
func (m *Manifest) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	if len(m.Env) > 0 {
		root.Content = append(root.Content, strNode(KeyEnv), envNode(m.Env))
	}
	for _, j := range m.Jobs {
		root.Content = append(root.Content, strNode(j.Name), jobNode(j))
	}
	return root, nil
}

func jobNode(j *Job) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	if len(j.Env) > 0 {
		n.Content = append(n.Content, strNode(KeyEnv), envNode(j.Env))
	}

	cmds := &yaml.Node{Kind: yaml.SequenceNode}
	if len(j.Steps) == 0 {
		cmds.Style = yaml.FlowStyle
	}
	for _, s := range j.Steps {
		cmds.Content = append(cmds.Content, stepNode(s))
	}
	n.Content = append(n.Content, strNode(KeyCommands), cmds)
	return n
}

func stepNode(s Step) *yaml.Node {
	if !s.AlwaysSucceed {
		return strNode(s.Run)
	}
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			strNode(KeyRun), strNode(s.Run),
			strNode(KeyAlwaysSucceed), {Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"},
		},
	}
}

func envNode(env map[string]string) *yaml.Node {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		n.Content = append(n.Content, strNode(k), strNode(env[k]))
	}
	return n
}

func strNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
