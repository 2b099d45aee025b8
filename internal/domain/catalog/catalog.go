// Package catalog maps cluster labels to curated segment metadata and
// product lists. The curated set ships embedded with the binary; lookups for
// labels outside it synthesize a generic descriptor instead of failing.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/cyrce/loyalty/internal/domain/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var rawCatalog []byte

// defaultProductType backs categories missing from the static mapping.
const defaultProductType = "sparkling"

// categoryToProductType is the static table from a customer's dominant
// purchase category to a product-catalog key.
var categoryToProductType = map[string]string{
	"COLAS":        "sparkling",
	"AGUA":         "hydration",
	"JUGOS":        "natural",
	"ENERGIZANTES": "energy",
	"LACTEOS":      "dairy",
	"SNACKS":       "snacks",
}

// Catalog holds the curated cluster metadata keyed by cluster label.
type Catalog struct {
	clusters map[int]model.ClusterMetadata
}

type catalogFile struct {
	Clusters []struct {
		ID                    int `yaml:"id"`
		model.ClusterMetadata `yaml:",inline"`
	} `yaml:"clusters"`
}

// New parses and validates the embedded curated catalog.
func New() (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(rawCatalog, &f); err != nil {
		return nil, fmt.Errorf("parse embedded catalog: %w", err)
	}
	if len(f.Clusters) == 0 {
		return nil, fmt.Errorf("embedded catalog is empty")
	}

	clusters := make(map[int]model.ClusterMetadata, len(f.Clusters))
	for _, c := range f.Clusters {
		if err := validateMetadata(c.ClusterMetadata); err != nil {
			return nil, fmt.Errorf("cluster %d: %w", c.ID, err)
		}
		clusters[c.ID] = c.ClusterMetadata
	}
	if _, ok := clusters[0]; !ok {
		// Cluster 0's products are the documented fallback for labels
		// outside the curated set; without them Lookup cannot keep its
		// never-empty contract.
		return nil, fmt.Errorf("embedded catalog missing cluster 0")
	}
	return &Catalog{clusters: clusters}, nil
}

func validateMetadata(m model.ClusterMetadata) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if len(m.ProductCatalog) == 0 {
		return fmt.Errorf("empty product catalog")
	}
	for _, g := range m.ProductCatalog {
		if len(g.Products) == 0 {
			return fmt.Errorf("product type %q has no products", g.Type)
		}
		if len(g.Products) != len(g.Images) {
			return fmt.Errorf("product type %q: %d products vs %d images",
				g.Type, len(g.Products), len(g.Images))
		}
	}
	return nil
}

// Lookup returns metadata for clusterID. Labels outside the curated set get
// a synthesized "Cluster {id}" descriptor with an empty recommendation and
// cluster 0's product catalog. Never empty, never an error.
func (c *Catalog) Lookup(clusterID int) model.ClusterMetadata {
	if meta, ok := c.clusters[clusterID]; ok {
		return meta
	}
	return model.ClusterMetadata{
		Name:           fmt.Sprintf("Cluster %d", clusterID),
		Description:    fmt.Sprintf("Uncurated behavioral segment %d", clusterID),
		Recommendation: "",
		ProductCatalog: c.clusters[0].ProductCatalog,
	}
}

// Curated reports whether clusterID has a curated entry.
func (c *Catalog) Curated(clusterID int) bool {
	_, ok := c.clusters[clusterID]
	return ok
}

// ProductTypeFor maps a dominant purchase category to a product-catalog key,
// falling back to the default type for unmapped categories.
func ProductTypeFor(category string) string {
	if t, ok := categoryToProductType[strings.ToUpper(strings.TrimSpace(category))]; ok {
		return t
	}
	return defaultProductType
}

// ProductsFor resolves the product group for a customer's dominant category
// within the given metadata snapshot. When the mapped type is absent from
// the snapshot the first group wins, which keeps the choice deterministic.
func ProductsFor(meta model.ClusterMetadata, category string) model.ProductGroup {
	want := ProductTypeFor(category)
	for _, g := range meta.ProductCatalog {
		if g.Type == want {
			return g
		}
	}
	return meta.ProductCatalog[0]
}
