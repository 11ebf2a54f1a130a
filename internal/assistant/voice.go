package assistant

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type VoiceAction string

const (
	ActionFindRides VoiceAction = "findRides"
	ActionBookRide  VoiceAction = "bookRide"
	ActionChat      VoiceAction = "chat"
)

// VoiceIntent is what one transcript turn asks the booking agent to do.
type VoiceIntent struct {
	Action VoiceAction `json:"action"`
	From   string      `json:"from,omitempty"`
	To     string      `json:"to,omitempty"`
	Date   string      `json:"date,omitempty"`
	RideID string      `json:"rideId,omitempty"`
	Reply  string      `json:"reply"`
	Source Source      `json:"source"`
}

const VoicePrompt = "Where are you leaving from, where are you going, and on which date?"

const voicePrompt = `You are a voice assistant for RideLink, a carpooling app. Help the user book a ride.
Collect the departure city, the destination city and the travel date (YYYY-MM-DD). Today's date is %s.
When you have all three, choose action "findRides". When the user picks a ride (for example "book ride ride_1"),
choose action "bookRide" with its rideId. Otherwise choose action "chat" and ask for what is missing.
Be friendly and conversational.

Conversation so far:
%s
User: %s

Respond with a JSON object {"action": "findRides" | "bookRide" | "chat", "from": string, "to": string, "date": string, "rideId": string, "reply": string}.`

// Interpret turns a transcript line into an intent.
func (a *Assistant) Interpret(ctx context.Context, transcript string, history []Turn, today time.Time) VoiceIntent {
	var lines []string
	for _, t := range history {
		role := "User"
		if t.Role == "agent" {
			role = "Assistant"
		}
		lines = append(lines, role+": "+strings.TrimSpace(t.Text))
	}
	var in VoiceIntent
	prompt := fmt.Sprintf(voicePrompt, today.Format(time.DateOnly), strings.Join(lines, "\n"), strings.TrimSpace(transcript))
	err := a.object(ctx, prompt, &in, func() error { return in.validate() })
	if err != nil {
		a.fallback("voice", err)
		return parseVoiceLocally(transcript, today)
	}
	in.Source = SourceAI
	return in
}

func (in VoiceIntent) validate() error {
	switch in.Action {
	case ActionFindRides:
		if err := required(map[string]string{"from": in.From, "to": in.To, "date": in.Date}); err != nil {
			return err
		}
		if _, err := time.Parse(time.DateOnly, in.Date); err != nil {
			return fmt.Errorf("bad date %q", in.Date)
		}
	case ActionBookRide:
		return required(map[string]string{"rideId": in.RideID})
	case ActionChat:
		return required(map[string]string{"reply": in.Reply})
	default:
		return fmt.Errorf("unknown action %q", in.Action)
	}
	return nil
}

var (
	bookRe  = regexp.MustCompile(`(?i)\bbook\s+(?:ride\s+)?(ride_[a-z0-9_-]+|[0-9a-f-]{36})`)
	routeRe = regexp.MustCompile(`(?i)\bfrom\s+([a-z][a-z .]*?)\s+to\s+([a-z][a-z .]*?)(?:\s+(?:on\s+)?(\d{4}-\d{2}-\d{2}|today|tomorrow))?\s*[.?!]?\s*$`)
)

// parseVoiceLocally understands the two command shapes the agent suggests
// to users: "book ride <id>" and "from <city> to <city> on <date>".
func parseVoiceLocally(transcript string, today time.Time) VoiceIntent {
	t := strings.TrimSpace(transcript)
	if m := bookRe.FindStringSubmatch(t); m != nil {
		return VoiceIntent{Action: ActionBookRide, RideID: strings.ToLower(m[1]), Source: SourceFallback}
	}
	if m := routeRe.FindStringSubmatch(t); m != nil {
		from, to, date := titleCase(m[1]), titleCase(m[2]), m[3]
		switch strings.ToLower(date) {
		case "":
			return VoiceIntent{
				Action: ActionChat,
				From:   from,
				To:     to,
				Reply:  fmt.Sprintf("On which date would you like to travel from %s to %s?", from, to),
				Source: SourceFallback,
			}
		case "today":
			date = today.Format(time.DateOnly)
		case "tomorrow":
			date = today.AddDate(0, 0, 1).Format(time.DateOnly)
		}
		return VoiceIntent{Action: ActionFindRides, From: from, To: to, Date: date, Source: SourceFallback}
	}
	return VoiceIntent{Action: ActionChat, Reply: "Sorry, I didn't catch that. " + VoicePrompt, Source: SourceFallback}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
