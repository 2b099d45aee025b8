// Package challenge turns segment metadata and customer features into a
// personalized loyalty challenge. A generative text service is the primary
// strategy; a deterministic template set is the fallback, and both produce
// the same challenge shape.
package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cyrce/loyalty/internal/domain/catalog"
	"github.com/cyrce/loyalty/internal/domain/model"
)

// challengeWindowDays is the fixed challenge duration: every deadline is
// exactly this many days after creation.
const challengeWindowDays = 30

// Strategy identifies which path produced a challenge.
type Strategy string

// Generation strategies.
const (
	StrategyPrimary  Strategy = "primary"
	StrategyFallback Strategy = "fallback"
)

// TextGenerator is the capability needed from a generative text service:
// one prompt in, one UTF-8 response out. Implementations must honor ctx.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithClock overrides the time source used for deadlines.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// Generator builds challenges from cluster metadata and feature vectors.
type Generator struct {
	text TextGenerator
	now  func() time.Time
}

// NewGenerator constructs a Generator around an injected text service. A nil
// text service is allowed: every generation then takes the fallback path.
func NewGenerator(text TextGenerator, opts ...Option) *Generator {
	g := &Generator{
		text: text,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a challenge for the assigned cluster. The primary
// strategy's failure modes (transport, timeout, malformed response) are
// absorbed here: the caller always receives a structurally valid challenge
// plus the strategy that produced it.
func (g *Generator) Generate(ctx context.Context, clusterID int, meta model.ClusterMetadata, v model.FeatureVector) (model.Challenge, Strategy) {
	deadline := g.now().AddDate(0, 0, challengeWindowDays)
	products := catalog.ProductsFor(meta, v.DominantCategory)

	c, err := g.primary(ctx, meta, v, products, deadline)
	strategy := StrategyPrimary
	if err != nil {
		c = fallbackChallenge(clusterID, v, products, deadline)
		strategy = StrategyFallback
	}

	c.SourceFeatures = v
	c.ClusterID = clusterID
	c.ClusterMeta = meta
	c.ImageURL = products.Images[0]
	c.SuggestedProducts = products.Products
	c.SuggestedImages = products.Images
	return c, strategy
}

// primary runs the generative strategy and returns a typed error on any
// deviation from the response contract. It performs exactly one outbound
// call and never retries.
func (g *Generator) primary(ctx context.Context, meta model.ClusterMetadata, v model.FeatureVector, products model.ProductGroup, deadline time.Time) (model.Challenge, error) {
	if g.text == nil {
		return model.Challenge{}, fmt.Errorf("%w: no text service configured", ErrGeneration)
	}

	prompt := buildPrompt(meta, v, products, deadline)
	raw, err := g.text.Generate(ctx, prompt)
	if err != nil {
		return model.Challenge{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	c, err := parseResponse(raw)
	if err != nil {
		return model.Challenge{}, err
	}

	// The deadline is owned by this service, not the model: whatever the
	// response echoed, the stored value is creation time + 30 days.
	c.Deadline = deadline
	return c, nil
}

// rawChallenge mirrors the strict response contract. Pointer fields separate
// "absent" from zero values so every missing key is a typed failure.
type rawChallenge struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	NumericGoal   *float64 `json:"numeric_goal"`
	Unit          *string  `json:"unit"`
	TargetProduct *string  `json:"target_product"`
	Incentive     *string  `json:"incentive"`
	Deadline      *string  `json:"deadline"`
	Tips          []string `json:"tips"`
}

// parseResponse validates the generated text against the eight-key contract.
// Anything short of a complete, well-typed JSON object is a malformed
// response; partial results are never accepted.
func parseResponse(raw string) (model.Challenge, error) {
	var parsed rawChallenge
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return model.Challenge{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	missing := func(key string) (model.Challenge, error) {
		return model.Challenge{}, fmt.Errorf("%w: missing key %q", ErrMalformedResponse, key)
	}
	switch {
	case parsed.Title == nil || strings.TrimSpace(*parsed.Title) == "":
		return missing("title")
	case parsed.Description == nil || strings.TrimSpace(*parsed.Description) == "":
		return missing("description")
	case parsed.NumericGoal == nil:
		return missing("numeric_goal")
	case parsed.Unit == nil:
		return missing("unit")
	case parsed.TargetProduct == nil || strings.TrimSpace(*parsed.TargetProduct) == "":
		return missing("target_product")
	case parsed.Incentive == nil:
		return missing("incentive")
	case parsed.Deadline == nil:
		return missing("deadline")
	case len(parsed.Tips) == 0:
		return missing("tips")
	}
	if *parsed.NumericGoal <= 0 {
		return model.Challenge{}, fmt.Errorf("%w: numeric_goal must be positive, got %v",
			ErrMalformedResponse, *parsed.NumericGoal)
	}

	return model.Challenge{
		Title:         *parsed.Title,
		Description:   *parsed.Description,
		NumericGoal:   *parsed.NumericGoal,
		Unit:          *parsed.Unit,
		TargetProduct: *parsed.TargetProduct,
		Incentive:     *parsed.Incentive,
		Tips:          parsed.Tips,
	}, nil
}
