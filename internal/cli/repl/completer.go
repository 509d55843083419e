package repl

import (
	"sort"
	"strings"
)

// Completer suggests known command words.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer for cmds plus the built-in words.
func NewCompleter(cmds ...string) *Completer {
	all := []string{"exit", "history", "quit"}
	for _, cmd := range cmds {
		if cmd = strings.ToLower(strings.TrimSpace(cmd)); cmd != "" {
			all = append(all, cmd)
		}
	}
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns the commands starting with prefix. When none match,
// commands sharing the first letter are offered instead.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	if prefix == "" {
		return nil
	}

	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	if len(suggestions) > 0 {
		return suggestions
	}
	for _, cmd := range c.commands {
		if cmd[0] == prefix[0] {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
