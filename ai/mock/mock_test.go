package mock

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector_DeterministicUnit(t *testing.T) {
	a := Vector("hello", 16)
	b := Vector("hello", 16)
	c := Vector("world", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockGenerator_StreamConcatenates(t *testing.T) {
	gen := NewMockGenerator()

	var chunks []string
	answer, err := gen.GenerateStream(context.Background(), nil, func(_ context.Context, chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, DefaultAnswer, answer)
	assert.Equal(t, DefaultAnswer, strings.Join(chunks, ""))
	assert.Greater(t, len(chunks), 1)
	assert.Equal(t, 1, gen.CallCount())
}

func TestMockEmbedder_Records(t *testing.T) {
	emb := NewMockEmbedder()
	_, err := emb.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	_, err = emb.EmbedText(context.Background(), "c")
	require.NoError(t, err)

	assert.Equal(t, 2, emb.CallCount())
	assert.Equal(t, []string{"a", "b", "c"}, emb.Texts())

	emb.Reset()
	assert.Zero(t, emb.CallCount())
}
