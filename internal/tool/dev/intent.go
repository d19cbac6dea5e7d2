package dev

import (
	"regexp"
	"strings"
)

// Invocation is a tool call derived from natural language.
type Invocation struct {
	Tool   string
	Params map[string]any
}

var (
	calcRe = regexp.MustCompile(`(?i)calculate\s+(.+)$`)

	searchRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)search(?:\s+for)?\s+(.+)`),
		regexp.MustCompile(`(?i)find(?:\s+information(?:\s+about)?)?\s+(.+)`),
		regexp.MustCompile(`(?i)look\s+up\s+(.+)`),
	}

	textRes = []struct {
		re        *regexp.Regexp
		operation string
	}{
		{regexp.MustCompile(`(?i)count\s+characters\s+in\s+['"](.+)['"]`), "count"},
		{regexp.MustCompile(`(?i)count\s+words\s+in\s+['"](.+)['"]`), "wordcount"},
		{regexp.MustCompile(`(?i)reverse\s+['"](.+)['"]`), "reverse"},
		{regexp.MustCompile(`(?i)uppercase\s+['"](.+)['"]`), "uppercase"},
		{regexp.MustCompile(`(?i)lowercase\s+['"](.+)['"]`), "lowercase"},
		{regexp.MustCompile(`(?i)capitalize\s+['"](.+)['"]`), "capitalize"},
	}

	// The api token matches framework-suffixed forms too ("FastAPI
	// endpoint"), and an optional framework word may precede it
	// ("Flask API endpoint").
	apiRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)create\s+(?:an?\s+)?(?:([a-z]+)\s+)?([a-z]*api)\s+endpoint\s+(?:for\s+)?(.+)`),
		regexp.MustCompile(`(?i)generate\s+(?:an?\s+)?(?:([a-z]+)\s+)?([a-z]*api)\s+(?:endpoint\s+)?(?:for\s+)?(.+)`),
		regexp.MustCompile(`(?i)implement\s+(?:an?\s+)?(?:([a-z]+)\s+)?([a-z]*api)\s+(?:endpoint\s+)?(?:for\s+)?(.+)`),
	}

	componentRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)create\s+(?:a\s+)?react\s+component\s+(?:for\s+)?(.+)`),
		regexp.MustCompile(`(?i)generate\s+(?:a\s+)?react\s+(?:component\s+)?(?:for\s+)?(.+)`),
		regexp.MustCompile(`(?i)implement\s+(?:a\s+)?react\s+(?:component\s+)?(?:for\s+)?(.+)`),
	}

	sqlRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)create\s+(?:an?\s+)?(?:sql\s+)?table\s+(?:schema\s+)?(?:for\s+)?(.+)`),
		regexp.MustCompile(`(?i)generate\s+(?:an?\s+)?(?:sql|database)\s+schema\s+(?:for\s+)?(.+)`),
	}
)

// DecideInvocation maps a natural-language request onto one of the
// built-in tools. It mirrors the tool-selection rules the runtime uses
// before falling back to a plain model completion: the first matching
// rule wins and the match text becomes the primary parameter.
func DecideInvocation(input string) (*Invocation, bool) {
	if m := calcRe.FindStringSubmatch(input); m != nil {
		return &Invocation{
			Tool:   "calculator",
			Params: map[string]any{"expression": strings.TrimSpace(m[1])},
		}, true
	}

	for _, t := range textRes {
		if m := t.re.FindStringSubmatch(input); m != nil {
			return &Invocation{
				Tool:   "text",
				Params: map[string]any{"text": m[1], "operation": t.operation},
			}, true
		}
	}

	for _, re := range apiRes {
		if m := re.FindStringSubmatch(input); m != nil {
			return &Invocation{
				Tool: "api_endpoint",
				Params: map[string]any{
					"endpoint_name": strings.TrimSpace(m[3]),
					"http_method":   "GET",
					"framework":     apiFramework(m[1], m[2]),
				},
			}, true
		}
	}

	for _, re := range componentRes {
		if m := re.FindStringSubmatch(input); m != nil {
			return &Invocation{
				Tool: "component",
				Params: map[string]any{
					"component_name": toPascalCase(strings.TrimSpace(m[1])),
					"component_type": "functional",
					"use_typescript": true,
				},
			}, true
		}
	}

	for _, re := range sqlRes {
		if m := re.FindStringSubmatch(input); m != nil {
			return &Invocation{
				Tool:   "sql_schema",
				Params: map[string]any{"table_name": strings.TrimSpace(m[1])},
			}, true
		}
	}

	for _, re := range searchRes {
		if m := re.FindStringSubmatch(input); m != nil {
			return &Invocation{
				Tool:   "search",
				Params: map[string]any{"query": strings.TrimSpace(m[1])},
			}, true
		}
	}

	return nil, false
}

// apiFramework resolves the framework parameter from the matched api
// token ("fastapi") or the word preceding it ("flask API"). Anything
// outside the tool's framework set falls back to express.
func apiFramework(prefix, apiWord string) string {
	if strings.EqualFold(apiWord, "fastapi") {
		return "fastapi"
	}
	switch f := strings.ToLower(prefix); f {
	case "express", "fastapi", "flask":
		return f
	}
	return "express"
}
