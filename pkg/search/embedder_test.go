package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbedReturnsVectorsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{}
		for i := range req.Input {
			idx := len(req.Input) - 1 - i // return out of order to exercise the sort
			resp.Data = append(resp.Data, embeddingData{Embedding: []float32{float32(idx)}, Index: idx})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "key", "text-embedding-3-small", 3, 10, nil)
	vectors, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	require.Equal(t, []float32{0}, vectors[0])
	require.Equal(t, []float32{1}, vectors[1])
	require.Equal(t, []float32{2}, vectors[2])
	require.Equal(t, 1, e.ActualDimensions())
}

func TestEmbedBatchesRequests(t *testing.T) {
	var requestCount atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, embeddingData{Embedding: []float32{0}, Index: i})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "key", "text-embedding-3-small", 3, 2, nil)
	_, err := e.Embed(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Equal(t, int64(3), requestCount.Load()) // batches of 2,2,1
}

func TestEmbedSendsDimensionsOnlyForV3Models(t *testing.T) {
	var gotDimensions int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotDimensions = req.Dimensions
		require.NoError(t, json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Embedding: []float32{1}, Index: 0}},
		}))
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "key", "legacy-ada", 42, 10, nil)
	_, err := e.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	require.Equal(t, 0, gotDimensions)
}

func TestEmbedPropagatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "key", "text-embedding-3-small", 3, 10, nil)
	_, err := e.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "abc", truncateRunes("abc", 10))
	require.Equal(t, "ab", truncateRunes("abcdef", 2))
	require.Equal(t, strings.Repeat("x", 3), truncateRunes(strings.Repeat("x", 3), 3))
}
