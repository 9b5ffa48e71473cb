package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	maxEmbedRunes    = 8000
	embedHTTPTimeout = 60 * time.Second
)

// Embedder calls an OpenAI-compatible batch embeddings endpoint, grounded on
// the request/response shapes of the teacher's pkg/rag/embed client but
// built directly on net/http since that package's Provider abstraction is
// chat-completion-shaped and has no batch embeddings call.
type Embedder struct {
	httpClient *http.Client
	apiBase    string
	apiKey     string
	model      string
	dimensions int
	batchSize  int

	actualDimensions atomic.Int64
	log              *slog.Logger
}

// NewEmbedder constructs an embedder for the given resolved settings.
func NewEmbedder(apiBase, apiKey, model string, dimensions, batchSize int, log *slog.Logger) *Embedder {
	if log == nil {
		log = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Embedder{
		httpClient: &http.Client{Timeout: embedHTTPTimeout},
		apiBase:    strings.TrimRight(apiBase, "/"),
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		batchSize:  batchSize,
		log:        log,
	}
}

// Dimensions returns the configured (not necessarily verified) vector width.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ActualDimensions returns the vector width observed on the first successful
// response, or 0 if no request has succeeded yet.
func (e *Embedder) ActualDimensions() int {
	return int(e.actualDimensions.Load())
}

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      []string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Data []embeddingData `json:"data"`
}

type embeddingErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// maxConcurrentBatches bounds fan-out for Embed's batch calls, mirroring the
// teacher's pkg/rag/embed.embedBatchOptimized concurrency cap.
const maxConcurrentBatches = 4

// Embed embeds texts in batches of at most batchSize, preserving input
// order in the result. Batches are embedded concurrently (bounded by
// maxConcurrentBatches) via errgroup, since each batch is an independent
// HTTP round trip.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var starts []int
	for start := 0; start < len(texts); start += e.batchSize {
		starts = append(starts, start)
	}
	results := make([][][]float32, len(starts))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentBatches)
	for i, start := range starts {
		i, start := i, start
		end := min(start+e.batchSize, len(texts))
		group.Go(func() error {
			vectors, err := e.embedBatch(groupCtx, texts[start:end])
			if err != nil {
				return err
			}
			results[i] = vectors
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for _, vectors := range results {
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	truncated := make([]string, len(texts))
	for i, t := range texts {
		truncated[i] = truncateRunes(t, maxEmbedRunes)
	}

	req := embeddingRequest{Model: e.model, Input: truncated}
	if strings.HasPrefix(e.model, "text-embedding-3") {
		req.Dimensions = e.dimensions
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, wrapEmbeddingError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiBase+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, wrapEmbeddingError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapEmbeddingError(err)
	}
	defer resp.Body.Close()

	var raw bytes.Buffer
	if _, err := raw.ReadFrom(resp.Body); err != nil {
		return nil, wrapEmbeddingError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp embeddingErrorResponse
		if json.Unmarshal(raw.Bytes(), &errResp) == nil && errResp.Error.Message != "" {
			return nil, wrapEmbeddingError(fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, errResp.Error.Message))
		}
		return nil, wrapEmbeddingError(fmt.Errorf("embedding API returned status %d", resp.StatusCode))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw.Bytes(), &parsed); err != nil {
		return nil, wrapEmbeddingError(err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, wrapEmbeddingError(fmt.Errorf("embedding API returned %d vectors for %d inputs", len(parsed.Data), len(texts)))
	}

	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })

	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = d.Embedding
	}

	if len(vectors) > 0 {
		observed := int64(len(vectors[0]))
		if e.actualDimensions.CompareAndSwap(0, observed) {
			// first successful response: record the observed width
		} else if prev := e.actualDimensions.Load(); prev != observed {
			e.log.Warn("embedding response dimension mismatch", slog.Int64("expected", prev), slog.Int64("observed", observed))
		}
	}

	return vectors, nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
