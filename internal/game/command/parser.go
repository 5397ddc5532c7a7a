package command

import "strings"

// ParseResult is one line from the vault prompt split into its parts.
type ParseResult struct {
	// Command is the first word, lowercased for registry lookup.
	Command string
	// Args are the remaining whitespace-separated words.
	Args []string
	// RawArgs is the text after the command word with interior spacing
	// intact. Handlers that take multi-word item, spell, or character
	// names ("open Bryn the Bold") read this instead of Args.
	RawArgs string
}

// Parse splits one input line into a command word and its arguments.
// An empty or all-whitespace line yields a ParseResult with Command empty;
// the session loop treats that as a blank prompt, not an error.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return ParseResult{
			Command: strings.ToLower(line),
		}
	}

	cmd := strings.ToLower(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}

	return ParseResult{
		Command: cmd,
		Args:    args,
		RawArgs: rest,
	}
}
