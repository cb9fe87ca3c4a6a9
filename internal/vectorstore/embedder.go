package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/philippgille/chromem-go"
	goopenai "github.com/sashabaranov/go-openai"
)

// NewHashEmbedder returns a local feature-hashing embedder. Words and rune
// bigrams are hashed into dim buckets, so Korean stems still overlap when
// particles differ. Needs no network and is deterministic.
func NewHashEmbedder(dim int) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		return hashEmbed(text, dim), nil
	}
}

func hashEmbed(text string, dim int) []float32 {
	vec := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		addFeature(vec, "w:"+w, 1)
		runes := []rune(w)
		for i := 0; i+1 < len(runes); i++ {
			addFeature(vec, "b:"+string(runes[i:i+2]), 0.5)
		}
	}
	return normalize(vec)
}

func addFeature(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(len(vec)))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// normalize scales v to unit length; an all-zero vector becomes a unit basis vector.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		if len(v) > 0 {
			v[0] = 1
		}
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// NewOpenAIEmbedder embeds through any OpenAI-compatible /embeddings endpoint.
func NewOpenAIEmbedder(client *goopenai.Client, model string) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Input: []string{text},
			Model: goopenai.EmbeddingModel(model),
		})
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, errors.New("embedding response has no data")
		}
		return normalize(resp.Data[0].Embedding), nil
	}
}
