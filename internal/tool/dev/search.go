package dev

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kazz187/devguild/internal/tool"
)

// Search provides offline lookup of curated developer resources. It is a
// deterministic stand-in for a web search: results come from a built-in
// catalog keyed by technology.
type Search struct{}

func NewSearch() *Search { return &Search{} }

func (s *Search) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        "search",
		Description: "Search for development resources and information",
		Tags:        []string{"information", "documentation"},
		Params: []tool.ParamSpec{
			{Name: "query", Type: tool.TypeString, Required: true, Description: "The search query"},
			{Name: "max_results", Type: tool.TypeNumber, Description: "Maximum number of results to return"},
		},
	}
}

type searchResult struct {
	Title       string
	URL         string
	Description string
}

var searchCatalog = map[string][]searchResult{
	"python": {
		{"Python 3 Documentation", "https://docs.python.org/3/", "Official Python documentation with language and library reference."},
		{"The Python Tutorial", "https://docs.python.org/3/tutorial/", "Hands-on introduction to Python."},
		{"PEP 8 - Style Guide for Python Code", "https://peps.python.org/pep-0008/", "The official style guide for Python code."},
	},
	"javascript": {
		{"JavaScript Guide", "https://developer.mozilla.org/en-US/docs/Web/JavaScript/Guide", "Comprehensive guide to JavaScript on MDN."},
		{"JavaScript Reference", "https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference", "Complete JavaScript reference on MDN."},
		{"Node.js Documentation", "https://nodejs.org/en/docs/", "Official documentation for Node.js."},
	},
	"react": {
		{"React Documentation", "https://react.dev/learn", "Official React documentation."},
		{"React Hooks Reference", "https://react.dev/reference/react", "Reference for built-in React hooks."},
		{"React Router Documentation", "https://reactrouter.com/", "Documentation for React Router."},
	},
	"go": {
		{"Go Documentation", "https://go.dev/doc/", "Official Go documentation."},
		{"Effective Go", "https://go.dev/doc/effective_go", "Tips for writing clear, idiomatic Go code."},
		{"Go Standard Library", "https://pkg.go.dev/std", "Documentation for the Go standard library."},
	},
	"docker": {
		{"Docker Documentation", "https://docs.docker.com/", "Official Docker documentation."},
		{"Dockerfile Reference", "https://docs.docker.com/engine/reference/builder/", "Reference for Dockerfile instructions."},
		{"Docker Compose Documentation", "https://docs.docker.com/compose/", "Documentation for Docker Compose."},
	},
	"sql": {
		{"PostgreSQL Documentation", "https://www.postgresql.org/docs/", "Official PostgreSQL documentation."},
		{"SQL Tutorial", "https://www.w3schools.com/sql/", "Introductory SQL tutorial."},
		{"Use The Index, Luke", "https://use-the-index-luke.com/", "A guide to database performance for developers."},
	},
}

func (s *Search) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	query, err := requireString(params, "query")
	if err != nil {
		return nil, err
	}
	maxResults := intParam(params, "max_results", 5)
	if maxResults <= 0 {
		maxResults = 5
	}

	lower := strings.ToLower(query)
	techs := make([]string, 0, len(searchCatalog))
	for tech := range searchCatalog {
		techs = append(techs, tech)
	}
	sort.Strings(techs)

	var results []searchResult
	for _, tech := range techs {
		if strings.Contains(lower, tech) {
			results = append(results, searchCatalog[tech]...)
		}
	}
	if len(results) == 0 {
		// No technology matched: return general pointers.
		results = []searchResult{
			{"MDN Web Docs", "https://developer.mozilla.org/", "Resources for developers, by developers."},
			{"Stack Overflow", "https://stackoverflow.com/search?q=" + strings.ReplaceAll(query, " ", "+"), "Community Q&A for programmers."},
			{"GitHub Search", "https://github.com/search?q=" + strings.ReplaceAll(query, " ", "+"), "Search code and repositories."},
		}
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for %q:\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Description)
	}
	return &tool.Result{
		Output: strings.TrimRight(sb.String(), "\n"),
		Meta:   map[string]any{"query": query, "count": len(results)},
	}, nil
}
