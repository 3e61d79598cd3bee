package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/fatih/color"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError renders an error message with suggestions and help commands
//
// Example output:
//
//	✗ UNKNOWN TYPE: Persn
//
//	   Did you mean: Person?
//
//	   → List types: graphmap types
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	headerColor := colorFor(opts.NoColor, color.FgRed, color.Bold)
	symbol := "✗"
	if opts.Level == ErrorLevelWarning {
		headerColor = colorFor(opts.NoColor, color.FgYellow, color.Bold)
		symbol = "!"
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		colorFor(opts.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := colorFor(opts.NoColor, color.FgCyan)
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// Describe classifies err by its error kind
func Describe(err error, noColor bool) ErrorOptions {
	opts := ErrorOptions{Level: ErrorLevelError, Problem: err.Error(), NoColor: noColor}

	switch {
	case ormerrors.IsParse(err):
		opts.Context = "parse error"
		opts.HelpCommands = []string{"Inspect a template: graphmap explain --type <Type> '<template>'"}
	case ormerrors.IsConfiguration(err):
		opts.Context = "configuration error"
		opts.HelpCommands = []string{"Check graphmap.yaml and the schema file", "List types: graphmap types"}
	case ormerrors.IsNotFound(err):
		opts.Context = "not found"
	case ormerrors.IsUnsupported(err):
		opts.Context = "unsupported"
	case ormerrors.IsResolution(err):
		opts.Context = "resolution error"
	case ormerrors.IsAdapterFailure(err):
		opts.Context = "store failure"
		opts.HelpCommands = []string{"Check the store section of graphmap.yaml"}
	}
	return opts
}

// UnknownType reports a type name missing from the schema
func UnknownType(name string, known []string, noColor bool) ErrorOptions {
	return ErrorOptions{
		Level:        ErrorLevelError,
		Context:      "unknown type",
		Problem:      name,
		Suggestions:  FindSimilar(name, known, nil),
		HelpCommands: []string{"List types: graphmap types"},
		NoColor:      noColor,
	}
}
