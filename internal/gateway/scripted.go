package gateway

import (
	"context"
	"sync"
)

// ScriptedCompleter replays a fixed response sequence. It records every
// prompt so tests can assert on what the runtime sent.
type ScriptedCompleter struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	index     int
	prompts   []string
}

// ScriptedResponse is one scripted turn: either a response text or an error.
type ScriptedResponse struct {
	Text string
	Err  error
}

func NewScriptedCompleter(responses ...ScriptedResponse) *ScriptedCompleter {
	return &ScriptedCompleter{responses: responses}
}

// Script is shorthand for a sequence of plain text responses.
func Script(texts ...string) *ScriptedCompleter {
	responses := make([]ScriptedResponse, len(texts))
	for i, t := range texts {
		responses[i] = ScriptedResponse{Text: t}
	}
	return NewScriptedCompleter(responses...)
}

func (s *ScriptedCompleter) Complete(ctx context.Context, prompt string, _ Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)

	if s.index >= len(s.responses) {
		// Exhausted scripts repeat the final response so loops terminate
		// deterministically.
		if len(s.responses) == 0 {
			return "", &ProviderError{Retryable: false, Err: errEmptyScript}
		}
		last := s.responses[len(s.responses)-1]
		return last.Text, last.Err
	}

	r := s.responses[s.index]
	s.index++
	return r.Text, r.Err
}

// Prompts returns the prompts seen so far.
func (s *ScriptedCompleter) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Calls returns how many completions were requested.
func (s *ScriptedCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

var errEmptyScript = &scriptError{"scripted completer has no responses"}

type scriptError struct{ msg string }

func (e *scriptError) Error() string { return e.msg }
