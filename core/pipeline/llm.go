package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/litreview/conceptgraph/helper"
)

// LLMProvider is a single backing model the LLMService can fall over to.
type LLMProvider interface {
	Name() string
	Generate(ctx context.Context, system, user string, jsonMode bool) (string, error)
}

// CallPolicy tags a call site with how it must behave when every provider
// in the chain fails, making the contract visible at the call site rather
// than buried in a comment.
type CallPolicy int

const (
	// Required call sites propagate the error; the caller has no sane default.
	Required CallPolicy = iota
	// PreferredWithFallback call sites fall back to a rule-based default on exhaustion.
	PreferredWithFallback
	// OptionalEnhancement call sites get ("", false) on exhaustion rather than failing the caller.
	OptionalEnhancement
)

// RateLimiter is a per-provider token bucket enforcing requests-per-minute,
// guarded by a single mutex since this module is goroutine-based rather
// than async/await.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewRateLimiter builds a limiter allowing requestsPerMinute sustained throughput.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	max := float64(requestsPerMinute)
	if max <= 0 {
		max = 1
	}
	return &RateLimiter{
		tokens:     max,
		maxTokens:  max,
		refillRate: max / 60.0,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(r.lastRefill).Seconds()
		r.tokens = min(r.maxTokens, r.tokens+elapsed*r.refillRate)
		r.lastRefill = now

		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - r.tokens) / r.refillRate * float64(time.Second))
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// LLMService fronts an ordered provider chain (Anthropic primary, OpenAI
// and Gemini as fallbacks) with per-provider rate limiting and a capped
// backoff retry, using a single-mutex rate gate rather than a
// per-provider semaphore.
type LLMService struct {
	providers []LLMProvider
	limiters  map[string]*RateLimiter
	maxBackoff time.Duration
	log       *slog.Logger
}

// NewLLMService builds a service over providers in fallback order, one
// rate limiter per provider keyed by its Name().
func NewLLMService(log *slog.Logger, requestsPerMinute int, providers ...LLMProvider) *LLMService {
	limiters := make(map[string]*RateLimiter, len(providers))
	for _, p := range providers {
		limiters[p.Name()] = NewRateLimiter(requestsPerMinute)
	}
	return &LLMService{providers: providers, limiters: limiters, maxBackoff: 8 * time.Second, log: log}
}

// Generate runs the provider chain, retrying each provider with capped
// backoff on transient/rate-limit errors before falling over to the next.
func (s *LLMService) Generate(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	var lastErr error

	for _, provider := range s.providers {
		limiter := s.limiters[provider.Name()]

		backoff := time.Second
		for attempt := 0; attempt < 3; attempt++ {
			if err := limiter.Wait(ctx); err != nil {
				return "", helper.NewError("rate limiter wait", err)
			}

			out, err := provider.Generate(ctx, system, user, jsonMode)
			if err == nil {
				return out, nil
			}

			lastErr = err
			s.log.Warn("llm provider call failed", "provider", provider.Name(), "attempt", attempt, "error", err)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, s.maxBackoff)
		}

		s.log.Warn("llm provider exhausted, falling over", "provider", provider.Name())
	}

	return "", helper.NewCoded(helper.CodeUnavailable, "all llm providers exhausted", lastErr)
}

// MustGenerate is for Required call sites: the error propagates verbatim.
func (s *LLMService) MustGenerate(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	return s.Generate(ctx, system, user, jsonMode)
}

// GenerateOrFallback is for PreferredWithFallback call sites: on provider
// exhaustion, fallback is invoked instead of propagating the error.
func (s *LLMService) GenerateOrFallback(ctx context.Context, system, user string, jsonMode bool, fallback func() string) string {
	out, err := s.Generate(ctx, system, user, jsonMode)
	if err != nil {
		s.log.Warn("llm generate failed, using rule-based fallback", "error", err)
		return fallback()
	}
	return out
}

// GenerateOptional is for OptionalEnhancement call sites: exhaustion yields
// ("", false) rather than an error, leaving the caller's feature degraded
// but not failed.
func (s *LLMService) GenerateOptional(ctx context.Context, system, user string, jsonMode bool) (string, bool) {
	out, err := s.Generate(ctx, system, user, jsonMode)
	if err != nil {
		s.log.Info("optional llm enhancement skipped", "error", err)
		return "", false
	}
	return out, true
}

// ParseJSON runs the four-strategy parse cascade against an LLM response
// that was requested in jsonMode: strict unmarshal, fenced code block
// extraction, first balanced brace span, then a best-effort key regex.
// All four failing returns an error wrapping helper.CodeLLMParseError.
func ParseJSON(raw string, out interface{}) error {
	if json.Unmarshal([]byte(raw), out) == nil {
		return nil
	}

	if fenced := extractFencedJSON(raw); fenced != "" {
		if json.Unmarshal([]byte(fenced), out) == nil {
			return nil
		}
	}

	if span := extractBalancedBraces(raw); span != "" {
		if json.Unmarshal([]byte(span), out) == nil {
			return nil
		}
	}

	if bestEffortKeyExtraction(raw, out) == nil {
		return nil
	}

	return helper.NewCoded(helper.CodeLLMParseError, "could not parse llm json response", fmt.Errorf("all four parse strategies failed"))
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\}|\\[.*?\\])\\s*```")

func extractFencedJSON(raw string) string {
	m := fencedJSONPattern.FindStringSubmatch(raw)
	if len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractBalancedBraces scans for the first balanced {...} span, tolerant
// of braces embedded in string values by tracking quote state.
func extractBalancedBraces(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}

	return ""
}

// bestEffortKeyExtraction is the last-resort strategy: it only supports
// out types that are *map[string]string, scraping "key": "value" pairs
// via regex. Anything structurally richer is a genuine parse failure.
func bestEffortKeyExtraction(raw string, out interface{}) error {
	target, ok := out.(*map[string]string)
	if !ok {
		return fmt.Errorf("best-effort extraction only supports *map[string]string")
	}

	pairPattern := regexp.MustCompile(`"(\w+)"\s*:\s*"([^"]*)"`)
	matches := pairPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return fmt.Errorf("no key-value pairs found")
	}

	result := make(map[string]string, len(matches))
	for _, m := range matches {
		result[m[1]] = m[2]
	}
	*target = result
	return nil
}

