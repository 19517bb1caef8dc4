// Package completion loads the project-scoped command completion
// dictionary. Only the dictionary and its nested lookup live here; the
// completion interaction itself is not implemented.
package completion

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// Dictionary is a nested command vocabulary of the form
//
//	{
//	    "command_1": ["command_1_argument1", "command_1_argument2"],
//	    "command_2": {
//	        "command_2_subcommand_1": ["command_2_subcommand_1_arg1"],
//	        ...
//	    }
//	}
//
// scoped by project name in the completion file.
type Dictionary struct {
	root gjson.Result
}

// DefaultPath returns ~/.config/pycom/completion.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "pycom", "completion.json")
}

// Load reads the completion file and selects the dictionary for project.
// A missing file or project disables completion; the returned error is
// informational, not fatal.
func Load(path, project string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid completion file %s", path)
	}
	root := gjson.ParseBytes(data).Get(escapeKey(project))
	if !root.Exists() {
		return nil, fmt.Errorf("completion for %q not found", project)
	}
	return &Dictionary{root: root}, nil
}

// Entries returns the possible continuations after the given words: the
// nested object is walked word by word, and the keys (or array elements)
// of the deepest reachable level are returned.
func (d *Dictionary) Entries(words []string) []string {
	node := d.root
	for _, word := range words {
		if word == "" {
			continue
		}
		next := node.Get(escapeKey(word))
		if !next.Exists() {
			break
		}
		node = next
	}
	return level(node)
}

func level(node gjson.Result) []string {
	var entries []string
	switch {
	case node.IsObject():
		node.ForEach(func(key, _ gjson.Result) bool {
			entries = append(entries, key.String())
			return true
		})
	case node.IsArray():
		for _, item := range node.Array() {
			entries = append(entries, item.String())
		}
	}
	return entries
}

// escapeKey protects gjson path metacharacters in literal key lookups.
func escapeKey(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '\\', '|', '#', '@':
			out = append(out, '\\')
		}
		out = append(out, key[i])
	}
	return string(out)
}
