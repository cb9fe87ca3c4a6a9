package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transcript = "Buy the pullback to the twenty day moving average.\n\n" +
	"Cut losses quickly at three percent.\n\n" +
	"Watch volume spikes on breakout days."

func newTestStore(t *testing.T) *Store {
	t.Helper()
	f := NewFactory(NewHashEmbedder(256), 60, 0)
	vs, err := f.New(context.Background())
	require.NoError(t, err)
	return vs.(*Store)
}

func TestStoreIndexAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	n, err := s.Index(ctx, transcript)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	passages, err := s.Search(ctx, "moving average pullback", 5)
	require.NoError(t, err)
	require.Len(t, passages, 3, "k is clamped to the number of chunks")
	assert.Contains(t, passages[0].Content, "moving average")
	assert.GreaterOrEqual(t, passages[0].Similarity, passages[1].Similarity)
}

func TestStoreEmptyText(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	_, err := s.Index(context.Background(), "   \n\n  ")
	require.ErrorIs(t, err, ErrNoChunks)

	passages, err := s.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestStoreClosed(t *testing.T) {
	s := newTestStore(t)
	s.Close()

	_, err := s.Index(context.Background(), transcript)
	require.ErrorIs(t, err, ErrClosed)
	_, err = s.Search(context.Background(), "x", 1)
	require.ErrorIs(t, err, ErrClosed)
}

func TestFactoryStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t)
	b := newTestStore(t)

	_, err := a.Index(ctx, transcript)
	require.NoError(t, err)

	passages, err := b.Search(ctx, "moving average", 3)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestHashEmbedderUnitLength(t *testing.T) {
	embed := NewHashEmbedder(64)
	for _, text := range []string{"눌림목 매수", "", "!!!"} {
		vec, err := embed(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, vec, 64)

		var sum float64
		for _, x := range vec {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, sum, 1e-4, "text %q", text)
	}
}

func TestHashEmbedderDeterministic(t *testing.T) {
	embed := NewHashEmbedder(128)
	a, _ := embed(context.Background(), "분할 매수 원칙")
	b, _ := embed(context.Background(), "분할 매수 원칙")
	assert.Equal(t, a, b)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "embed-model", req.Model)
		assert.Equal(t, []string{"hello"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"embed-model","data":[{"object":"embedding","index":0,"embedding":[3,4]}]}`))
	}))
	defer srv.Close()

	cfg := goopenai.DefaultConfig("key")
	cfg.BaseURL = srv.URL + "/v1"
	embed := NewOpenAIEmbedder(goopenai.NewClientWithConfig(cfg), "embed-model")

	vec, err := embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, vec, 1e-6)
}
