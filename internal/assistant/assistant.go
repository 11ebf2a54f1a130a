// Package assistant wraps the generative-text collaborator. Every feature
// returns a usable answer: when the model is missing, slow, failing or
// off-schema the answer is produced locally instead.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/ridelink/internal/observability"
)

// Source tells callers whether the model or the local fallback answered.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
	SourceLocal    Source = "local"
)

var (
	errNoGenerator = errors.New("no generator configured")
	errEmpty       = errors.New("empty response")
)

type Assistant struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

// New returns an Assistant. gen may be nil, in which case every answer
// comes from the fallbacks.
func New(gen Generator, timeout time.Duration, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Assistant{gen: gen, timeout: timeout, logger: logger}
}

func (a *Assistant) text(ctx context.Context, prompt string) (string, error) {
	if a.gen == nil {
		return "", errNoGenerator
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errEmpty
	}
	return out, nil
}

// object asks for JSON and decodes it into v, then runs check on it.
func (a *Assistant) object(ctx context.Context, prompt string, v any, check func() error) error {
	if a.gen == nil {
		return errNoGenerator
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	out, err := a.gen.GenerateJSON(ctx, prompt)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(stripFence(out)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return check()
}

func (a *Assistant) fallback(feature string, err error) {
	observability.AIFallbacks.WithLabelValues(feature).Inc()
	a.logger.Warn("assistant fallback", zap.String("feature", feature), zap.Error(err))
}

// stripFence removes a ```json ... ``` wrapper some models add.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func required(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("model output missing %s", strings.Join(missing, ", "))
	}
	return nil
}
