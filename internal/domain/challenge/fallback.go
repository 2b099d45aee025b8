package challenge

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyrce/loyalty/internal/domain/model"
)

// defaultTemplateID backs cluster labels outside the curated template set.
const defaultTemplateID = 2

// fallbackTemplate is a pre-authored challenge shape for one segment. The
// target product is interpolated from the resolved product group at
// generation time.
type fallbackTemplate struct {
	title       string // used when the dominant category has no custom title
	description string // fmt verb receives the lowercased category
	goal        float64
	unit        string
	incentive   string
	tips        []string
}

var fallbackTemplates = map[int]fallbackTemplate{
	0: {
		title:       "Expand Your Premium Portfolio!",
		description: "Grow your %s sales by leaning on your experience in the category",
		goal:        30,
		unit:        "units",
		incentive:   "Earn 150 points redeemable for products",
		tips: []string{
			"Display the products where they are easy to spot",
			"Offer attractive combos",
			"Promote on social media",
		},
	},
	1: {
		title:       "Full Reactivation!",
		description: "Reactivate your store by selling more %s, your strongest category",
		goal:        20,
		unit:        "units",
		incentive:   "Earn 100 points redeemable for products",
		tips: []string{
			"Keep stock steady",
			"Sharpen customer service",
			"Run daily promotions",
		},
	},
	2: {
		title:       "Diversify Your Business!",
		description: "Diversify within %s, where you already have experience",
		goal:        15,
		unit:        "units",
		incentive:   "Earn 75 points redeemable for products",
		tips: []string{
			"Start with small quantities",
			"Ask your customers for feedback",
			"Pair new items with familiar products",
		},
	},
}

// categoryTitles personalizes fallback titles per dominant category.
var categoryTitles = map[string]string{
	"COLAS":        "Own the Sparkling Aisle!",
	"AGUA":         "Hydration Leader!",
	"JUGOS":        "Natural Beverage Expert!",
	"ENERGIZANTES": "Power Up the Energy!",
	"LACTEOS":      "Dairy Master!",
	"SNACKS":       "Snack Royalty!",
}

// fallbackChallenge deterministically builds a challenge with zero network
// access. It must always produce a structurally valid result; it is the
// correctness backstop for every primary-strategy failure.
func fallbackChallenge(clusterID int, v model.FeatureVector, products model.ProductGroup, deadline time.Time) model.Challenge {
	tpl, ok := fallbackTemplates[clusterID]
	if !ok {
		tpl = fallbackTemplates[defaultTemplateID]
	}

	category := strings.ToUpper(strings.TrimSpace(v.DominantCategory))
	title := tpl.title
	if t, ok := categoryTitles[category]; ok {
		title = t
	}

	tips := make([]string, len(tpl.tips))
	copy(tips, tpl.tips)

	return model.Challenge{
		Title:         title,
		Description:   fmt.Sprintf(tpl.description, strings.ToLower(category)),
		NumericGoal:   tpl.goal,
		Unit:          tpl.unit,
		TargetProduct: products.Products[0],
		Incentive:     tpl.incentive,
		Deadline:      deadline,
		Tips:          tips,
	}
}

// FallbackGoal exposes the template goal for a cluster label. Used by the
// smoke harness to predict fallback output without duplicating templates.
func FallbackGoal(clusterID int) float64 {
	if tpl, ok := fallbackTemplates[clusterID]; ok {
		return tpl.goal
	}
	return fallbackTemplates[defaultTemplateID].goal
}
