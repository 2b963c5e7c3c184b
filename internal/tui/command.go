package tui

import "strings"

// Command is a parsed ':' prompt entry.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string without the leading ':'. Aliases
// resolve to their long names.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	switch cmd.Name {
	case "q":
		cmd.Name = "quit"
	case "img":
		cmd.Name = "image"
	case "a":
		cmd.Name = "archive"
	}
	return cmd
}
