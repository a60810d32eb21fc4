package memory

import (
	"math"
	"sort"
	"time"

	"github.com/easeaico/chat-characters/internal/types"
)

// Scorer rates how relevant a stored exchange still is at a point in time.
type Scorer interface {
	Score(e types.Exchange, now time.Time) float64
}

// RecencyScorer implements score = W * I * exp(-h/tau), h being the age in hours.
type RecencyScorer struct {
	// Tau is the e-folding time of the recency term; zero means 24h.
	Tau time.Duration
}

// Score returns the recency-weighted importance of e. Future timestamps count as age zero.
func (s RecencyScorer) Score(e types.Exchange, now time.Time) float64 {
	tau := s.Tau
	if tau <= 0 {
		tau = 24 * time.Hour
	}
	weight := e.Weight
	if weight < 0 || math.IsNaN(weight) {
		weight = 0
	}
	ageHours := now.Sub(e.CreatedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return weight * float64(e.Importance) * math.Exp(-ageHours/tau.Hours())
}

// Scored is an exchange together with the score it was ranked by.
type Scored struct {
	types.Exchange
	Score float64 `json:"score"`
}

// Rank scores exchanges, sorts them by score descending with the most recent
// first on ties, and keeps at most limit entries. A non-positive limit keeps all.
func Rank(exchanges []types.Exchange, scorer Scorer, now time.Time, limit int) []Scored {
	if scorer == nil {
		scorer = RecencyScorer{}
	}
	ranked := make([]Scored, 0, len(exchanges))
	for _, e := range exchanges {
		ranked = append(ranked, Scored{Exchange: e, Score: scorer.Score(e, now)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
		}
		return ranked[i].ID > ranked[j].ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
