package dev

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/kazz187/devguild/internal/tool"
)

// Text processes and transforms text: counting, reversing, case
// conversions and excerpts.
type Text struct{}

func NewText() *Text { return &Text{} }

var textOperations = []string{
	"count", "wordcount", "reverse", "uppercase", "lowercase", "capitalize",
	"camel_case", "pascal_case", "snake_case", "kebab_case", "excerpt",
}

func (t *Text) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        "text",
		Description: "Process and manipulate text for development tasks",
		Tags:        []string{"utility", "text"},
		Params: []tool.ParamSpec{
			{Name: "text", Type: tool.TypeString, Required: true, Description: "The text to process"},
			{Name: "operation", Type: tool.TypeString, Required: true, Enum: textOperations, Description: "The operation to perform"},
			{Name: "length", Type: tool.TypeNumber, Description: "Length parameter for excerpt"},
		},
	}
}

func (t *Text) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	text, err := requireString(params, "text")
	if err != nil {
		return nil, err
	}
	op, err := requireString(params, "operation")
	if err != nil {
		return nil, err
	}

	var output string
	switch strings.ToLower(op) {
	case "count":
		output = fmt.Sprintf("%d", len([]rune(text)))
	case "wordcount":
		output = fmt.Sprintf("%d", len(strings.Fields(text)))
	case "reverse":
		output = reverseString(text)
	case "uppercase":
		output = strings.ToUpper(text)
	case "lowercase":
		output = strings.ToLower(text)
	case "capitalize":
		output = capitalizeWords(text)
	case "camel_case":
		output = toCamelCase(text)
	case "pascal_case":
		output = toPascalCase(text)
	case "snake_case":
		output = toSnakeCase(text)
	case "kebab_case":
		output = toKebabCase(text)
	case "excerpt":
		length := intParam(params, "length", 100)
		output = excerpt(text, length)
	default:
		return nil, fmt.Errorf("unsupported operation %q", op)
	}

	return &tool.Result{
		Output: output,
		Meta:   map[string]any{"operation": op},
	}, nil
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = upperFirst(w)
	}
	return strings.Join(words, " ")
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// splitWords breaks an identifier or phrase into lowercase words, handling
// spaces, underscores, hyphens and camelCase boundaries.
func splitWords(s string) []string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == ' ' || r == '_' || r == '-' || r == '.':
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))):
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

func toCamelCase(s string) string {
	words := splitWords(s)
	for i := 1; i < len(words); i++ {
		words[i] = upperFirst(words[i])
	}
	return strings.Join(words, "")
}

func toPascalCase(s string) string {
	words := splitWords(s)
	for i := range words {
		words[i] = upperFirst(words[i])
	}
	return strings.Join(words, "")
}

func toSnakeCase(s string) string {
	return strings.Join(splitWords(s), "_")
}

func toKebabCase(s string) string {
	return strings.Join(splitWords(s), "-")
}

func excerpt(s string, length int) string {
	if length <= 0 {
		length = 100
	}
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	cut := string(runes[:length])
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
