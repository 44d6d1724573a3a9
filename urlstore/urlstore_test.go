package urlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDedup(t *testing.T) {
	a, ok := Normalize("HTTP://Example.com:80/a/?utm_source=x#frag")
	require.True(t, ok)
	b, ok := Normalize("http://example.com/a/")
	require.True(t, ok)
	assert.Equal(t, a, b)
}

func TestNormalizeInvalid(t *testing.T) {
	_, ok := Normalize("not a url")
	assert.False(t, ok)
	_, ok = Normalize("")
	assert.False(t, ok)
}

func TestStoreAddMergesOccurrences(t *testing.T) {
	s := New(nil)
	s.Add("http://example.com/a/", "Short", "d", 1)
	s.Add("HTTP://Example.com:80/a/", "A much longer title", "d", 1)
	rec, ok := s.Get("http://example.com/a")
	require.True(t, ok)
	assert.Equal(t, 2, rec.Occurrences)
	assert.Equal(t, "A much longer title", rec.Title)
}

func TestDiversityCap(t *testing.T) {
	s := New(nil)
	for i := 0; i < 5; i++ {
		s.Add(urlWithPath("example.com", i), "t", "d", 1)
	}
	s.Add("http://other.com/x", "t", "d", 1)

	ranked := s.RankedFor(context.Background(), "", RankOptions{DiversityCap: 2})
	counts := map[string]int{}
	for _, b := range ranked {
		counts[hostOf(b.URL)]++
	}
	for host, n := range counts {
		assert.LessOrEqual(t, n, 2, "host %s exceeded diversity cap", host)
	}
}

func TestFilterMonotonicity(t *testing.T) {
	s := New(nil)
	s.Add("http://a.com/x", "t", "d", 1)
	s.Add("http://b.com/y", "t", "d", 1)

	before := s.RankedFor(context.Background(), "", RankOptions{})
	after := s.RankedFor(context.Background(), "", RankOptions{BadHosts: []string{"a.com"}})
	assert.LessOrEqual(t, len(after), len(before))
}

func urlWithPath(host string, i int) string {
	return "http://" + host + "/path-" + string(rune('a'+i))
}
