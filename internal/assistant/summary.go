package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/trust"
)

const (
	NoReviewsSummary   = "This driver is new and has no reviews yet. Be the first to leave feedback!"
	SummaryUnavailable = "Could not generate an AI summary at this time. Please check the driver's individual reviews."
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentMixed    Sentiment = "mixed"
	SentimentNegative Sentiment = "negative"
)

func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentMixed || s == SentimentNegative
}

type ReviewSummary struct {
	Summary   string    `json:"summary"`
	Sentiment Sentiment `json:"sentiment,omitempty"`
	Source    Source    `json:"source"`
}

const summaryPrompt = `You are a trust and safety analyst for RideLink, a carpooling app in India.
Summarize the following reviews of one driver in a concise, professional paragraph.
Focus on safety, driving skill, punctuality and friendliness. Do not invent information.
If the reviews are mixed, say so.

Reviews:
%s

Respond with a JSON object {"summary": string, "sentiment": "positive" | "mixed" | "negative"}.`

// SummarizeReviews condenses a driver's reviews. It never fails.
func (a *Assistant) SummarizeReviews(ctx context.Context, reviews []models.Rating) ReviewSummary {
	if len(reviews) == 0 {
		return ReviewSummary{Summary: NoReviewsSummary, Source: SourceLocal}
	}
	var out ReviewSummary
	err := a.object(ctx, fmt.Sprintf(summaryPrompt, reviewLines(reviews)), &out, func() error {
		if err := required(map[string]string{"summary": out.Summary}); err != nil {
			return err
		}
		if !out.Sentiment.Valid() {
			return fmt.Errorf("invalid sentiment %q", out.Sentiment)
		}
		return nil
	})
	if err != nil {
		a.fallback("summary", err)
		return localSummary(reviews)
	}
	out.Source = SourceAI
	return out
}

func reviewLines(reviews []models.Rating) string {
	lines := make([]string, len(reviews))
	for i, r := range reviews {
		lines[i] = fmt.Sprintf("Rating: %d/5 - %q", r.Rating, r.Comment)
	}
	return strings.Join(lines, "\n")
}

func localSummary(reviews []models.Rating) ReviewSummary {
	b := trust.Explain(reviews)
	sentiment := SentimentMixed
	switch {
	case b.AverageRating >= 4 && b.SentimentModifier >= 0:
		sentiment = SentimentPositive
	case b.AverageRating < 3:
		sentiment = SentimentNegative
	}
	var praise, concerns []string
	for _, kw := range trust.PositiveKeywords {
		if mentions(reviews, kw) {
			praise = append(praise, kw)
		}
	}
	for _, kw := range trust.NegativeKeywords {
		if mentions(reviews, kw) {
			concerns = append(concerns, kw)
		}
	}
	s := fmt.Sprintf("%s Based on %d review(s) averaging %.1f/5, this driver's trust score is %.1f.",
		SummaryUnavailable, b.ReviewCount, b.AverageRating, b.Score)
	if len(praise) > 0 {
		s += " Riders mention: " + strings.Join(praise, ", ") + "."
	}
	if len(concerns) > 0 {
		s += " Concerns raised: " + strings.Join(concerns, ", ") + "."
	}
	return ReviewSummary{Summary: s, Sentiment: sentiment, Source: SourceFallback}
}

func mentions(reviews []models.Rating, keyword string) bool {
	for _, r := range reviews {
		if strings.Contains(strings.ToLower(r.Comment), keyword) {
			return true
		}
	}
	return false
}
