package catalog_test

import (
	"testing"

	"github.com/cyrce/loyalty/internal/domain/catalog"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCatalogLookup(t *testing.T) {
	Convey("Given the embedded curated catalog", t, func() {
		cat, err := catalog.New()
		So(err, ShouldBeNil)

		Convey("When looking up a curated cluster", func() {
			meta := cat.Lookup(0)
			So(meta.Name, ShouldNotBeBlank)
			So(meta.Description, ShouldNotBeBlank)
			So(meta.Recommendation, ShouldNotBeBlank)
			So(len(meta.ProductCatalog), ShouldBeGreaterThan, 0)
			So(cat.Curated(0), ShouldBeTrue)
		})

		Convey("When looking up labels outside the curated set", func() {
			for _, id := range []int{3, 4, 17, -1} {
				meta := cat.Lookup(id)

				So(cat.Curated(id), ShouldBeFalse)
				So(meta.Name, ShouldNotBeBlank)
				So(meta.Description, ShouldNotBeBlank)
				So(len(meta.ProductCatalog), ShouldBeGreaterThan, 0)

				// Documented default: product lists come from cluster 0.
				So(meta.ProductCatalog, ShouldResemble, cat.Lookup(0).ProductCatalog)
			}
		})

		Convey("Then every curated group keeps products and images aligned", func() {
			for _, id := range []int{0, 1, 2} {
				for _, g := range cat.Lookup(id).ProductCatalog {
					So(len(g.Products), ShouldBeGreaterThan, 0)
					So(len(g.Images), ShouldEqual, len(g.Products))
				}
			}
		})
	})
}

func TestProductTypeMapping(t *testing.T) {
	Convey("Given the static category table", t, func() {
		Convey("Then known categories map to their product types", func() {
			So(catalog.ProductTypeFor("COLAS"), ShouldEqual, "sparkling")
			So(catalog.ProductTypeFor("AGUA"), ShouldEqual, "hydration")
			So(catalog.ProductTypeFor("JUGOS"), ShouldEqual, "natural")
			So(catalog.ProductTypeFor("ENERGIZANTES"), ShouldEqual, "energy")
			So(catalog.ProductTypeFor("LACTEOS"), ShouldEqual, "dairy")
			So(catalog.ProductTypeFor("SNACKS"), ShouldEqual, "snacks")
		})

		Convey("Then lookups are case and whitespace tolerant", func() {
			So(catalog.ProductTypeFor(" colas "), ShouldEqual, "sparkling")
		})

		Convey("Then unmapped categories fall back to the default type", func() {
			So(catalog.ProductTypeFor("CERVEZA"), ShouldEqual, "sparkling")
		})
	})
}

func TestProductsFor(t *testing.T) {
	Convey("Given curated cluster metadata", t, func() {
		cat, err := catalog.New()
		So(err, ShouldBeNil)
		meta := cat.Lookup(0)

		Convey("When the mapped type exists in the snapshot", func() {
			g := catalog.ProductsFor(meta, "AGUA")
			So(g.Type, ShouldEqual, "hydration")
			So(g.Products[0], ShouldEqual, "Dasani Maracuya")
		})

		Convey("When the mapped type is absent from the snapshot", func() {
			// LACTEOS maps to "dairy", which the beverage catalog does not
			// carry; the first group is the deterministic fallback.
			g := catalog.ProductsFor(meta, "LACTEOS")
			So(g.Type, ShouldEqual, meta.ProductCatalog[0].Type)
		})

		Convey("Then group order differs per cluster", func() {
			So(cat.Lookup(1).ProductCatalog[0].Type, ShouldEqual, "hydration")
			So(cat.Lookup(2).ProductCatalog[0].Type, ShouldEqual, "natural")
		})
	})
}
