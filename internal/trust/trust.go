// Package trust derives a driver's reputation score from their reviews.
package trust

import (
	"math"
	"strings"

	"github.com/example/ridelink/internal/models"
)

const (
	BaseScore = models.DefaultTrustScore
	MinScore  = 1.0
	MaxScore  = 5.0

	positiveWeight = 0.05
	negativeWeight = 0.10
)

// Keywords are matched as substrings of the lower-cased comment, so
// "punctuality" counts as "punctual" and "unsafe" also counts as "safe".
var (
	PositiveKeywords = []string{"safe", "punctual", "clean", "friendly", "excellent", "smooth", "great", "comfortable", "recommend"}
	NegativeKeywords = []string{"late", "unsafe", "dirty", "rude", "aggressive", "unclean", "bad", "delay"}
)

// Breakdown exposes the intermediate terms of a score computation.
type Breakdown struct {
	ReviewCount       int     `json:"reviewCount"`
	AverageRating     float64 `json:"averageRating"`
	SentimentModifier float64 `json:"sentimentModifier"`
	ConfidenceFactor  float64 `json:"confidenceFactor"`
	Score             float64 `json:"score"`
}

// Compute returns a score in [1.0, 5.0] rounded to one decimal place.
// An empty history yields BaseScore.
func Compute(reviews []models.Rating) float64 {
	return Explain(reviews).Score
}

// Explain computes the score and the terms that produced it.
func Explain(reviews []models.Rating) Breakdown {
	if len(reviews) == 0 {
		return Breakdown{Score: BaseScore}
	}

	total := 0
	modifier := 0.0
	for _, r := range reviews {
		total += clampRating(r.Rating)
		modifier += CommentSentiment(r.Comment)
	}
	n := len(reviews)
	avg := float64(total) / float64(n)
	confidence := 1 - 1/float64(n+1)

	raw := avg + modifier*confidence
	return Breakdown{
		ReviewCount:       n,
		AverageRating:     avg,
		SentimentModifier: modifier,
		ConfidenceFactor:  confidence,
		Score:             round1(clamp(raw, MinScore, MaxScore)),
	}
}

// CommentSentiment is the keyword contribution of a single comment.
func CommentSentiment(comment string) float64 {
	if comment == "" {
		return 0
	}
	c := strings.ToLower(comment)
	s := 0.0
	for _, k := range PositiveKeywords {
		if strings.Contains(c, k) {
			s += positiveWeight
		}
	}
	for _, k := range NegativeKeywords {
		if strings.Contains(c, k) {
			s -= negativeWeight
		}
	}
	return s
}

// out-of-range star values are a caller bug; clamp rather than reject
func clampRating(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
