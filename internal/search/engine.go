package search

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTopK bounds how many ranked results a search returns
	DefaultTopK = 10
	// DefaultScoreFloor is the minimum cosine similarity for a candidate to
	// appear in results. Zero keeps weak-but-positive matches; -1 disables
	// the floor entirely.
	DefaultScoreFloor = 0.0
)

// Candidate is one task's current embedding offered for ranking
type Candidate struct {
	TaskID    uuid.UUID
	Vector    []float64
	CreatedAt time.Time
}

// Result is one ranked match
type Result struct {
	TaskID uuid.UUID
	Score  float64
}

// Engine ranks embedding candidates against a query vector. Stateless and
// deterministic for a fixed input set.
type Engine struct {
	topK       int
	scoreFloor float64
}

// NewEngine creates a search engine with explicit result bounds
func NewEngine(topK int, scoreFloor float64) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{
		topK:       topK,
		scoreFloor: scoreFloor,
	}
}

// Rank scores every candidate by cosine similarity to the query and returns
// the top matches in descending score order. Candidates without a vector, or
// whose dimension does not match the query's (stale records from a previous
// embedding model), are skipped rather than failing the search. Ties are
// broken by most-recent task creation time; the stable sort plus explicit
// tie-break keeps ordering deterministic. An empty return means "no similar
// tasks", a valid outcome, not an error.
func (e *Engine) Rank(query []float64, candidates []Candidate) []Result {
	if len(query) == 0 {
		return nil
	}

	type scored struct {
		Result
		createdAt time.Time
	}

	matches := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) != len(query) {
			continue
		}
		score := CosineSimilarity(query, c.Vector)
		if score < e.scoreFloor {
			continue
		}
		matches = append(matches, scored{
			Result:    Result{TaskID: c.TaskID, Score: score},
			createdAt: c.CreatedAt,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].createdAt.After(matches[j].createdAt)
	})

	if len(matches) > e.topK {
		matches = matches[:e.topK]
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.Result)
	}
	return results
}

// CosineSimilarity computes the normalized dot product of two equal-length
// vectors, in [-1, 1]. A zero vector has no direction and scores 0 against
// everything.
func CosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
