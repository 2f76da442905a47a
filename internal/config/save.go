package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveScopes replaces the scopes section of the config file.
// Comments and formatting in other sections are preserved by editing the
// yaml.Node tree.
func SaveScopes(configPath string, scopes []ScopeConfig) error {
	if err := ValidateScopes(scopes); err != nil {
		return err
	}

	var node yaml.Node
	if err := node.Encode(scopes); err != nil {
		return fmt.Errorf("building scopes node: %w", err)
	}
	return saveSection(configPath, "scopes", &node)
}

// AddScope appends scope to the existing scopes and saves them.
func AddScope(configPath string, scope ScopeConfig, existing []ScopeConfig) error {
	scopes := make([]ScopeConfig, 0, len(existing)+1)
	scopes = append(scopes, existing...)
	scopes = append(scopes, scope)
	return SaveScopes(configPath, scopes)
}

// RemoveScope deletes the named scope and saves the rest.
func RemoveScope(configPath, name string, existing []ScopeConfig) error {
	scopes := make([]ScopeConfig, 0, len(existing))
	found := false
	for _, s := range existing {
		if s.Name == name {
			found = true
			continue
		}
		scopes = append(scopes, s)
	}
	if !found {
		return fmt.Errorf("%w %q", ErrUnknownScope, name)
	}
	return SaveScopes(configPath, scopes)
}

func saveSection(configPath, key string, value *yaml.Node) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{{
				Kind: yaml.MappingNode,
				Content: []*yaml.Node{
					{Kind: yaml.ScalarNode, Value: key},
					value,
				},
			}},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			return fmt.Errorf("parsing config: top level is not a mapping")
		}
		found := false
		for i := 0; i < len(root.Content)-1; i += 2 {
			if root.Content[i].Value == key {
				root.Content[i+1] = value
				found = true
				break
			}
		}
		if !found {
			root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	// Write atomically (write to temp, then rename)
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".nsresolve.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
