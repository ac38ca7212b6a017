package config

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// ParseCommand splits a clipboard command line into argv. Words follow
// shell quoting: single quotes are literal, double quotes and bare words
// expand $VAR and ${VAR}, and a leading ~/ expands to the home directory.
// A line starting with # disables the command.
func ParseCommand(raw string) (CommandConfig, error) {
	argv, err := splitCommand(strings.TrimSpace(raw), os.Getenv)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func mustCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

// commandLexer accumulates one word at a time.
type commandLexer struct {
	getenv  func(string) string
	argv    []string
	word    strings.Builder
	started bool
}

func (l *commandLexer) emit() {
	if l.started {
		l.argv = append(l.argv, l.word.String())
	}
	l.word.Reset()
	l.started = false
}

func (l *commandLexer) write(s string) {
	l.word.WriteString(s)
	l.started = true
}

func splitCommand(line string, getenv func(string) string) ([]string, error) {
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	lex := &commandLexer{getenv: getenv}
	runes := []rune(line)
	var quote rune
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == '\'':
			if r == '\'' {
				quote = 0
				continue
			}
			lex.write(string(r))
		case r == '\\':
			if i+1 == len(runes) {
				return nil, fmt.Errorf("command ends with a bare backslash: %q", line)
			}
			i++
			lex.write(string(runes[i]))
		case r == '$':
			name, width, err := variableAt(runes[i+1:])
			if err != nil {
				return nil, fmt.Errorf("%w: %q", err, line)
			}
			if width == 0 {
				lex.write("$")
				continue
			}
			lex.write(lex.getenv(name))
			i += width
		case quote == '"':
			if r == '"' {
				quote = 0
				continue
			}
			lex.write(string(r))
		case r == '\'' || r == '"':
			quote = r
			lex.started = true
		case unicode.IsSpace(r):
			lex.emit()
		case r == '~' && !lex.started && (i+1 == len(runes) || runes[i+1] == '/'):
			home := lex.getenv("HOME")
			if home == "" {
				home = "~"
			}
			lex.write(home)
		default:
			lex.write(string(r))
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in command: %q", quote, line)
	}
	lex.emit()
	return lex.argv, nil
}

// variableAt reads a variable reference following a '$'. width is the number
// of runes consumed; zero means the '$' is literal.
func variableAt(rest []rune) (name string, width int, err error) {
	if len(rest) > 0 && rest[0] == '{' {
		end := -1
		for j, r := range rest {
			if r == '}' {
				end = j
				break
			}
		}
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated ${ in command")
		}
		name = string(rest[1:end])
		if !validVariable(name) {
			return "", 0, fmt.Errorf("invalid variable ${%s} in command", name)
		}
		return name, end + 1, nil
	}

	n := 0
	for n < len(rest) && (rest[n] == '_' || unicode.IsLetter(rest[n]) || (n > 0 && unicode.IsDigit(rest[n]))) {
		n++
	}
	return string(rest[:n]), n, nil
}

func validVariable(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
