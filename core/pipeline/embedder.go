package pipeline

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/knights-analytics/hugot"

	"github.com/litreview/conceptgraph/helper"
)

// EmbeddingProvider is a single backing embedding model the
// EmbeddingService can fail over to.
type EmbeddingProvider interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingService fronts a provider chain (OpenAI primary, Gemini
// secondary, an in-process hugot/MiniLM model tertiary) with
// per-provider retry and mid-batch failover.
type EmbeddingService struct {
	providers []EmbeddingProvider
	log       *slog.Logger
}

// NewEmbeddingService builds a service over providers in fallback order.
func NewEmbeddingService(log *slog.Logger, providers ...EmbeddingProvider) *EmbeddingService {
	return &EmbeddingService{providers: providers, log: log}
}

// Embed generates one vector per text. On exhausted retries against a
// provider, the remaining (not-yet-embedded) texts fail over to the next
// provider in the chain; embeddings already produced are kept. The batch
// either fully succeeds or returns a wrapped EmbeddingUnavailable error —
// a partial batch is never returned to the caller.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	remaining := make([]int, len(texts)) // indices still needing an embedding
	for i := range texts {
		remaining[i] = i
	}

	var lastErr error

	for _, provider := range s.providers {
		if len(remaining) == 0 {
			break
		}

		pending := make([]string, len(remaining))
		for i, idx := range remaining {
			pending[i] = texts[idx]
		}

		vectors, err := s.embedWithRetry(ctx, provider, pending)
		if err != nil {
			lastErr = err
			s.log.Warn("embedding provider exhausted, failing over", "provider", provider.Name(), "error", err)
			continue
		}

		for i, idx := range remaining {
			out[idx] = vectors[i]
		}
		remaining = nil
	}

	if len(remaining) > 0 {
		return nil, helper.NewCoded(helper.CodeEmbeddingUnavailable, "no embedding provider could embed the batch", lastErr)
	}

	return out, nil
}

// embedWithRetry retries a single provider on a fixed backoff schedule
// (1s/2s/4s, max 3 attempts) before giving up on that provider.
func (s *EmbeddingService) embedWithRetry(ctx context.Context, provider EmbeddingProvider, texts []string) ([][]float32, error) {
	backoff := time.Second
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		vectors, err := provider.Embed(ctx, texts)
		if err == nil {
			if len(vectors) != len(texts) {
				lastErr = helper.NewError("embed batch", errMismatchedBatch)
			} else {
				return vectors, nil
			}
		} else {
			lastErr = err
		}

		s.log.Warn("embedding attempt failed", "provider", provider.Name(), "attempt", attempt, "error", lastErr)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, lastErr
}

var errMismatchedBatch = errEmbedMismatch{}

type errEmbedMismatch struct{}

func (errEmbedMismatch) Error() string { return "provider returned a different vector count than requested" }

// LocalEmbedder wraps an in-process hugot/MiniLM sentence transformer
// as the tertiary, no-network embedding tier. The underlying
// hugot session and pipeline are held behind closures rather than named
// struct fields, since hugot's pipeline construction returns a type
// parameterized on the pipeline kind (feature-extraction here).
type LocalEmbedder struct {
	runPipeline func([]string) ([][]float32, error)
	closeFunc   func() error
}

// NewLocalEmbedder prepares the all-MiniLM-L6-v2 model (downloading it
// if needed) and wires it into a hugot Go-backend session.
func NewLocalEmbedder() (*LocalEmbedder, error) {
	modelPath, err := helper.PrepareModel("sentence-transformers/all-MiniLM-L6-v2", "")
	if err != nil {
		return nil, helper.NewError("prepare local embedding model", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, helper.NewError("create hugot session", err)
	}

	sentencePipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	})
	if err != nil {
		_ = session.Destroy()
		return nil, helper.NewError("create sentence pipeline", err)
	}

	return &LocalEmbedder{
		runPipeline: func(texts []string) ([][]float32, error) {
			result, err := sentencePipeline.RunPipeline(texts)
			if err != nil {
				return nil, err
			}
			return result.Embeddings, nil
		},
		closeFunc: session.Destroy,
	}, nil
}

func (e *LocalEmbedder) Name() string { return "local-minilm" }

func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := e.runPipeline(texts)
	if err != nil {
		return nil, helper.NewError("run local embedding pipeline", err)
	}
	if len(embeddings) != len(texts) {
		return nil, helper.NewError("run local embedding pipeline", errMismatchedBatch)
	}
	return embeddings, nil
}

// Close releases the underlying hugot session.
func (e *LocalEmbedder) Close() error {
	return e.closeFunc()
}

// CosineSimilarity calculates the cosine similarity between two embedding
// vectors, reused verbatim by the entity resolver's embedding-candidate stage.
func CosineSimilarity(a, b []float32) float32 {
	return cosineSimilarity(a, b)
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

const (
	tfidfMaxVocabulary = 1200
	tfidfMaxFeatures   = 64
)

// EmbedFallback implements a bounded TF-IDF fallback: a pure-Go,
// dependency-free embedding function. Nothing in the module calls it,
// and the EmbeddingService chain never substitutes it into the normal
// embedding flow. Vocabulary is capped at 1200 terms (by document
// frequency, most common first) and folded down to 64 float32 features:
// a retained term's bucket is its vocabulary rank modulo 64.
func EmbedFallback(texts []string) [][]float32 {
	docFreq := map[string]int{}
	tokenized := make([][]string, len(texts))

	for i, text := range texts {
		tokens := tokenize(text)
		tokenized[i] = tokens

		seen := map[string]bool{}
		for _, t := range tokens {
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}

	vocabulary := topTerms(docFreq, tfidfMaxVocabulary)
	vocabIndex := make(map[string]int, len(vocabulary))
	for i, term := range vocabulary {
		vocabIndex[term] = i
	}

	n := float64(len(texts))
	idf := make(map[string]float64, len(vocabulary))
	for _, term := range vocabulary {
		idf[term] = math.Log(1 + n/float64(docFreq[term]))
	}

	out := make([][]float32, len(texts))
	for i, tokens := range tokenized {
		termFreq := map[string]int{}
		for _, t := range tokens {
			termFreq[t]++
		}

		vec := make([]float32, tfidfMaxFeatures)
		for term, tf := range termFreq {
			idx, ok := vocabIndex[term]
			if !ok {
				continue
			}
			weight := float32(float64(tf) * idf[term])
			bucket := idx % tfidfMaxFeatures
			vec[bucket] += weight
		}
		out[i] = normalizeVector(vec)
	}

	return out
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	return fields
}

func topTerms(docFreq map[string]int, limit int) []string {
	terms := make([]string, 0, len(docFreq))
	for t := range docFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if docFreq[terms[i]] != docFreq[terms[j]] {
			return docFreq[terms[i]] > docFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

func normalizeVector(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
