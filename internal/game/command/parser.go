package command

import "strings"

// ParseResult holds the parsed command token and arguments from a message.
type ParseResult struct {
	// Command is the first word of the input, lowercased, with any leading
	// slash stripped.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command, preserving spacing for
	// free-text arguments like ask questions.
	RawArgs string
	// Slash reports whether the input carried the explicit command prefix.
	Slash bool
}

// Parse splits a message line into a command token and arguments.
//
// Postcondition: Returns a ParseResult; if line is empty, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	slash := strings.HasPrefix(line, "/")
	if slash {
		line = strings.TrimSpace(line[1:])
		if line == "" {
			return ParseResult{Slash: true}
		}
	}

	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return ParseResult{Command: strings.ToLower(line), Slash: slash}
	}

	cmd := strings.ToLower(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}

	return ParseResult{Command: cmd, Args: args, RawArgs: rest, Slash: slash}
}
