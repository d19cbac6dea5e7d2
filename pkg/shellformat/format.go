// Package shellformat formats generated shell scripts using
// mvdan.cc/sh/v3/syntax (the shfmt parser and printer).
package shellformat

import (
	"bytes"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Option configures the formatter.
type Option func(*config)

// Variant represents a shell language variant.
type Variant int

const (
	// Bash is the default shell variant (GNU Bash).
	Bash Variant = iota
	// POSIX is the POSIX-compliant shell variant.
	POSIX
	// MkSH is the MirBSD Korn Shell variant.
	MkSH
)

type config struct {
	indent  int
	variant Variant
}

func defaultConfig() *config {
	return &config{
		indent:  2,
		variant: Bash,
	}
}

// WithIndent sets the indentation width in spaces (default: 2).
func WithIndent(n int) Option {
	return func(c *config) { c.indent = n }
}

// WithVariant sets the shell language variant (default: Bash).
func WithVariant(v Variant) Option {
	return func(c *config) { c.variant = v }
}

func (c *config) syntaxVariant() syntax.LangVariant {
	switch c.variant {
	case POSIX:
		return syntax.LangPOSIX
	case MkSH:
		return syntax.LangMirBSDKorn
	default:
		return syntax.LangBash
	}
}

// Format parses a shell script and reprints it with consistent indentation,
// spaced redirects, and binary operators at the start of continuation lines.
// Invalid shell returns an error with the parser's position information.
func Format(input string, opts ...Option) (string, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}

	parser := syntax.NewParser(
		syntax.Variant(cfg.syntaxVariant()),
		syntax.KeepComments(true),
	)
	prog, err := parser.Parse(strings.NewReader(input), "")
	if err != nil {
		return "", fmt.Errorf("failed to parse shell script: %w", err)
	}

	printer := syntax.NewPrinter(
		syntax.Indent(uint(cfg.indent)),
		syntax.SpaceRedirects(true),
		syntax.BinaryNextLine(true),
	)
	var buf bytes.Buffer
	if err := printer.Print(&buf, prog); err != nil {
		return "", fmt.Errorf("failed to print shell script: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}

// Validate reports whether the input parses as the given shell variant.
func Validate(input string, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	parser := syntax.NewParser(syntax.Variant(cfg.syntaxVariant()))
	if _, err := parser.Parse(strings.NewReader(input), ""); err != nil {
		return fmt.Errorf("invalid shell script: %w", err)
	}
	return nil
}
