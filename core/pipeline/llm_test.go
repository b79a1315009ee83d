package pipeline

import (
	"context"
	"io"
	"log/slog"
)

// mockLLMProvider is a deterministic LLMProvider test double: it returns a
// fixed response (or fails a fixed number of times first), letting tests
// exercise the LLMService's retry/fallover and extractors' JSON parsing
// without any network calls.
type mockLLMProvider struct {
	name        string
	response    string
	failUntil   int // number of calls that return err before succeeding
	calls       int
	err         error
	lastUser    string
	lastJSONFlg bool
}

func (m *mockLLMProvider) Name() string { return m.name }

func (m *mockLLMProvider) Generate(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	m.calls++
	m.lastUser = user
	m.lastJSONFlg = jsonMode
	if m.calls <= m.failUntil {
		return "", m.err
	}
	return m.response, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLLMService(response string) *LLMService {
	return NewLLMService(testLogger(), 6000, &mockLLMProvider{name: "mock", response: response})
}
