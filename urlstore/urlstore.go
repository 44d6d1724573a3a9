// Package urlstore implements the deduplicating, re-rankable URL
// repository the scheduler consults before every Search/Visit decision.
// It has no dependency on package deepr; the scheduler adapts it through
// a small wrapper (see deepr/adapter.go) so that collaborator interfaces
// stay one-directional.
package urlstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// Record is one discovered URL and its accumulated metadata.
type Record struct {
	URL         string // normalized key
	Title       string
	Description string
	Date        string
	Weight      float64
	Occurrences int
}

// Boosted is a Record plus its derived ranking score components.
type Boosted struct {
	Record
	FreqBoost     float64
	HostnameBoost float64
	PathBoost     float64
	RerankBoost   float64
	FinalScore    float64
}

// Reranker scores a question against a batch of candidate URLs. A nil
// Reranker is valid: RankedFor then treats rerank_boost as always zero,
// matching spec's "if unavailable, zero" clause.
type Reranker interface {
	Rerank(ctx context.Context, question string, candidates []string) ([]float64, error)
}

const (
	hostnameBoostAlpha = 0.5
	hostnameBoostBeta  = 1.0
	rerankBoostMax     = 0.8
)

// Store is the in-memory, per-request URL repository.
type Store struct {
	mu       sync.Mutex
	records  map[string]*Record
	reranker Reranker
}

// New creates an empty store. reranker may be nil.
func New(reranker Reranker) *Store {
	return &Store{records: map[string]*Record{}, reranker: reranker}
}

// Add normalizes rawURL and merges it into the store. Invalid URLs are
// silently dropped (they map to nothing, per spec). Merging an existing
// URL increments Occurrences and takes the max title/description length
// seen so far, per spec's merge policy.
func (s *Store) Add(rawURL, title, description string, weight float64) {
	norm, ok := Normalize(rawURL)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, exists := s.records[norm]
	if !exists {
		s.records[norm] = &Record{
			URL:         norm,
			Title:       title,
			Description: description,
			Weight:      weight,
			Occurrences: 1,
		}
		return
	}
	rec.Occurrences++
	rec.Weight += weight
	if len(title) > len(rec.Title) {
		rec.Title = title
	}
	if len(description) > len(rec.Description) {
		rec.Description = description
	}
}

// AddWithDate is Add plus a last-seen date hint, used when a fetch probe
// supplies a Last-Modified value.
func (s *Store) AddWithDate(rawURL, title, description, date string, weight float64) {
	s.Add(rawURL, title, description, weight)
	norm, ok := Normalize(rawURL)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, exists := s.records[norm]; exists && date != "" {
		rec.Date = date
	}
}

// Get returns the stored record for a normalized URL, if present.
func (s *Store) Get(normalizedURL string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[normalizedURL]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Size reports how many distinct normalized URLs are stored.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// RankOptions parameterizes RankedFor's filter pipeline, per spec §4.2.
type RankOptions struct {
	Visited      map[string]bool
	Bad          map[string]bool
	OnlyHosts    []string // if non-empty, require host membership
	BoostHosts   []string
	BadHosts     []string
	DiversityCap int // max entries per hostname; 0 means no cap
	Limit        int // truncate the final slice to at most this many; 0 means no limit
}

// RankedFor runs the full filter → score → diversity-cap → truncate
// pipeline for the given question and returns results best-first.
func (s *Store) RankedFor(ctx context.Context, question string, opts RankOptions) []Boosted {
	s.mu.Lock()
	candidates := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		candidates = append(candidates, *rec)
	}
	s.mu.Unlock()

	filtered := filterPipeline(candidates, opts)
	if len(filtered) == 0 {
		return nil
	}

	rerankScores := s.rerankScores(ctx, question, filtered)

	boosted := make([]Boosted, 0, len(filtered))
	for i, rec := range filtered {
		b := Boosted{
			Record:        rec,
			FreqBoost:     math.Log(1 + float64(rec.Occurrences)),
			HostnameBoost: hostnameBoost(rec.URL, opts.BoostHosts, opts.BadHosts),
			PathBoost:     pathBoost(rec.URL),
			RerankBoost:   rerankScores[i],
		}
		b.FinalScore = b.FreqBoost + b.HostnameBoost + b.PathBoost + b.RerankBoost
		boosted = append(boosted, b)
	}

	sort.SliceStable(boosted, func(i, j int) bool { return boosted[i].FinalScore > boosted[j].FinalScore })

	if cap := opts.DiversityCap; cap > 0 {
		boosted = applyDiversityCap(boosted, cap)
	}

	if opts.Limit > 0 && len(boosted) > opts.Limit {
		boosted = boosted[:opts.Limit]
	}
	return boosted
}

func (s *Store) rerankScores(ctx context.Context, question string, recs []Record) []float64 {
	out := make([]float64, len(recs))
	if s.reranker == nil || question == "" {
		return out
	}
	urls := make([]string, len(recs))
	for i, r := range recs {
		urls[i] = r.URL
	}
	raw, err := s.reranker.Rerank(ctx, question, urls)
	if err != nil || len(raw) != len(urls) {
		return out
	}
	return normalizeScores(raw, rerankBoostMax)
}

// normalizeScores min-max normalizes raw into [0, max], so rerank_boost
// composes additively with freq/hostname boosts without dominating them.
func normalizeScores(raw []float64, max float64) []float64 {
	if len(raw) == 0 {
		return raw
	}
	lo, hi := raw[0], raw[0]
	for _, v := range raw {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(raw))
	if hi == lo {
		return out
	}
	for i, v := range raw {
		out[i] = (v - lo) / (hi - lo) * max
	}
	return out
}

func filterPipeline(records []Record, opts RankOptions) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if opts.Visited != nil && opts.Visited[rec.URL] {
			continue
		}
		if opts.Bad != nil && opts.Bad[rec.URL] {
			continue
		}
		host := hostOf(rec.URL)
		if len(opts.OnlyHosts) > 0 && !containsHost(opts.OnlyHosts, host) {
			continue
		}
		if containsHost(opts.BadHosts, host) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func hostnameBoost(rawURL string, boostHosts, badHosts []string) float64 {
	host := hostOf(rawURL)
	switch {
	case containsHost(badHosts, host):
		return -hostnameBoostBeta
	case containsHost(boostHosts, host):
		return hostnameBoostAlpha
	default:
		return 0
	}
}

// pathBoost rewards shorter paths for navigational intent, per spec.
func pathBoost(rawURL string) float64 {
	path := pathOf(rawURL)
	segments := 0
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" {
			segments++
		}
	}
	switch segments {
	case 0:
		return 0.3
	case 1:
		return 0.15
	default:
		return 0
	}
}

// applyDiversityCap keeps at most `cap` entries per hostname, preserving
// the incoming (best-first) order, per spec's diversity cap.
func applyDiversityCap(boosted []Boosted, cap int) []Boosted {
	counts := map[string]int{}
	out := make([]Boosted, 0, len(boosted))
	for _, b := range boosted {
		host := hostOf(b.URL)
		if counts[host] >= cap {
			continue
		}
		counts[host]++
		out = append(out, b)
	}
	return out
}

func containsHost(hosts []string, host string) bool {
	for _, h := range hosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}
