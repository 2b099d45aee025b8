package challenge

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyrce/loyalty/internal/domain/model"
)

// deadlineLayout is the date format used in prompts and expected back in
// generated responses.
const deadlineLayout = "2006-01-02"

// buildPrompt renders the generation prompt for one customer. The response
// contract at the bottom is parsed strictly; see parseResponse.
func buildPrompt(meta model.ClusterMetadata, v model.FeatureVector, products model.ProductGroup, deadline time.Time) string {
	var b strings.Builder

	b.WriteString("You are an expert in commercial strategy for neighborhood grocery stores.\n\n")

	b.WriteString("CUSTOMER PROFILE:\n")
	fmt.Fprintf(&b, "- Segment: %s\n", meta.Name)
	fmt.Fprintf(&b, "- Description: %s\n", meta.Description)
	fmt.Fprintf(&b, "- Recommendation: %s\n", meta.Recommendation)
	fmt.Fprintf(&b, "- Average ticket: %.2f USD\n", v.TicketAverage)
	fmt.Fprintf(&b, "- Monthly purchase volume: %.2f USD\n", v.PurchaseFrequency)
	fmt.Fprintf(&b, "- Active months: %d\n", v.ActiveMonths)
	fmt.Fprintf(&b, "- Months since last purchase: %d\n", v.RecencyMonths)
	fmt.Fprintf(&b, "- Dominant category: %s\n\n", v.DominantCategory)

	fmt.Fprintf(&b, "SUGGESTED PRODUCTS: %s\n\n", strings.Join(products.Products, ", "))

	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Generate a clear, specific and motivating loyalty challenge for this store.\n")
	b.WriteString("2. The challenge must fit the segment and the customer metrics above.\n")
	b.WriteString("3. The goal must include a concrete, reachable number (example: \"Sell 3 cases of Powerade 1L\").\n")
	b.WriteString("4. Rewards are always points redeemable for products.\n")
	b.WriteString("5. Spell out the incentive (example: \"earn 100 points\").\n")
	fmt.Fprintf(&b, "6. The challenge runs from today until %s.\n", deadline.Format(deadlineLayout))
	b.WriteString("7. Keep the tone motivating but realistic.\n\n")

	b.WriteString("RESPONSE FORMAT (JSON):\n")
	b.WriteString("{\n")
	b.WriteString("  \"title\": \"catchy challenge title\",\n")
	b.WriteString("  \"description\": \"clear description stating goal, product and point reward\",\n")
	b.WriteString("  \"numeric_goal\": target_number,\n")
	b.WriteString("  \"unit\": \"units/liters/cases/etc\",\n")
	b.WriteString("  \"target_product\": \"product name\",\n")
	b.WriteString("  \"incentive\": \"what the store earns on completion\",\n")
	fmt.Fprintf(&b, "  \"deadline\": %q,\n", deadline.Format(deadlineLayout))
	b.WriteString("  \"tips\": [\"tip 1\", \"tip 2\", \"tip 3\"]\n")
	b.WriteString("}\n\n")
	b.WriteString("Respond ONLY with the JSON object, no additional text.\n")

	return b.String()
}
