package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

type dataItem struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

func respond(w http.ResponseWriter, items ...dataItem) {
	_ = json.NewEncoder(w).Encode(map[string]any{"data": items})
}

func newService(t *testing.T, handler http.HandlerFunc, cfg Config) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "sk-test"
	}
	s, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return s
}

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	tests := []struct {
		model string
		dims  int
		want  int
	}{
		{"", 0, 1536},
		{"text-embedding-3-large", 0, 3072},
		{"text-embedding-3-small", 256, 256},
		{"custom-model", 0, DefaultDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			s, err := NewEmbeddingService(Config{APIKey: "k", Model: tt.model, Dimensions: tt.dims})
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Dimensions())
		})
	}
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first", "second"}, req.Input)
		assert.Equal(t, 2, req.Dimensions)

		respond(w, dataItem{Embedding: []float64{0, 1}, Index: 1}, dataItem{Embedding: []float64{1, 0}, Index: 0})
	}, Config{Dimensions: 2})

	vectors, err := s.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestEmbedBatch_AdaOmitsDimensions(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, present := raw["dimensions"]
		assert.False(t, present)
		respond(w, dataItem{Embedding: make([]float64, 1536)})
	}, Config{Model: "text-embedding-ada-002"})

	_, err := s.EmbedBatch(context.Background(), []string{"x"})
	require.NoError(t, err)
}

func TestEmbedBatch_MissingVector(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		respond(w, dataItem{Embedding: []float64{1, 0}, Index: 0})
	}, Config{Dimensions: 2})

	_, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "no embedding returned for input 1")
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		respond(w, dataItem{Embedding: []float64{1, 0, 0}})
	}, Config{Dimensions: 2})

	_, err := s.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedBatch_APIError(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
	}, Config{})

	_, err := s.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "Incorrect API key")
	assert.ErrorContains(t, err, "401")
}

func TestEmbedBatch_NonJSONError(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}, Config{})

	_, err := s.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "status 502")
}

func TestEmbedBatch_RateLimitedRecordsBackoff(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}, Config{})

	_, err := s.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbed_AndEmpty(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		respond(w, dataItem{Embedding: []float64{0.25, 0.75}})
	}, Config{Dimensions: 2})

	vec, err := s.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.75}, vec)

	vectors, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestPing(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}, Config{})
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.NoError(t, s.Close())
}
