package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBleveRerankOrdersByRelevance(t *testing.T) {
	docs := map[string][2]string{
		"http://a.com": {"Go concurrency patterns", "a deep dive into goroutines and channels"},
		"http://b.com": {"Baking bread", "a guide to sourdough starters"},
	}
	r := New(func(url string) (string, string) {
		d := docs[url]
		return d[0], d[1]
	})

	scores, err := r.Rerank(context.Background(), "goroutines and channels", []string{"http://a.com", "http://b.com"})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Greater(t, scores[0], scores[1])
}

func TestBleveRerankEmptyCandidates(t *testing.T) {
	r := New(func(string) (string, string) { return "", "" })
	scores, err := r.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}
