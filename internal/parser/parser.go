// Package parser turns raw command strings into typed commands. It has no
// dependencies beyond a logger and never touches simulator state.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/gravitysim/gravity/internal/util"
)

var (
	// ErrEmptyCommand is returned by SplitLine for blank input.
	ErrEmptyCommand = errors.New("empty command")
	// ErrUnbalancedQuote is returned when a quoted argument is not closed.
	ErrUnbalancedQuote = errors.New("unbalanced quote")
	// ErrMissingArgs is returned when a command has too few arguments.
	ErrMissingArgs = errors.New("missing arguments")
	// ErrInvalidNumber is returned for arguments that are not finite numbers.
	ErrInvalidNumber = errors.New("invalid number")
)

// Parser provides pure []string -> command conversion.
type Parser struct {
	logger      *slog.Logger
	defaultBody string
}

// NewParser creates a parser. Commands that omit the body name act on
// defaultBody.
func NewParser(logger *slog.Logger, defaultBody string) *Parser {
	if defaultBody == "" {
		defaultBody = DefaultBody
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger, defaultBody: defaultBody}
}

// CommandName normalizes "thrust" and ":thrust:" to ":THRUST:". Multi-part
// names may use spaces or colons: "session start" is ":SESSION:START:".
func CommandName(s string) string {
	s = strings.Trim(strings.TrimSpace(s), ":")
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, ":", " ")), ":")
	return ":" + strings.ToUpper(s) + ":"
}

// SplitLine splits a console line into a command name and arguments.
// Arguments are separated by whitespace; a double-quoted argument may
// contain spaces and uses "" for a literal quote.
func SplitLine(line string) (command string, args []string, err error) {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuote && i+1 < len(line) && line[i+1] == '"':
			cur.WriteString(`""`)
			i++
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
			started = true
		case !inQuote && (c == ' ' || c == '\t' || c == '\n' || c == '\r'):
			if started {
				fields = append(fields, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteByte(c)
			started = true
		}
	}
	if inQuote {
		return "", nil, ErrUnbalancedQuote
	}
	if started {
		fields = append(fields, cur.String())
	}
	if len(fields) == 0 {
		return "", nil, ErrEmptyCommand
	}
	return CommandName(fields[0]), CleanArgs(fields[1:]), nil
}

// CleanArgs strips surrounding quotes and unescapes doubled quotes in place.
func CleanArgs(args []string) []string {
	for i, v := range args {
		args[i] = util.CleanArg(v)
	}
	return args
}

// parseFloat parses a finite float.
func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidNumber, name, s)
	}
	return v, nil
}

// isNumber reports whether s parses as a float, used to tell an omitted
// body name from a numeric first argument.
func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// bodyAndRest splits off a leading body name, falling back to the default
// body when the first argument is numeric or absent.
func (p *Parser) bodyAndRest(args []string) (string, []string) {
	if len(args) == 0 || isNumber(args[0]) || strings.Contains(args[0], ",") {
		return p.defaultBody, args
	}
	return args[0], args[1:]
}
