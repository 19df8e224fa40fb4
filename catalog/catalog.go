/*
Package catalog defines the purchasable credit packs.

PURPOSE:
  Holds the static catalog of products the app sells: identifier,
  display name, display price, and the number of credits each pack
  grants. The catalog is the authority on which platform product
  identifiers belong to this subsystem at all; transactions for
  unknown products are drained without touching the ledger.

IMMUTABILITY:
  A Catalog is built once (from the built-in defaults or a YAML file)
  and never mutated afterwards. Both the client pipeline and the
  ledger service read the same mapping, so a pack's credit value can
  never disagree between the two sides of a redemption.

PRICING:
  Display prices use shopspring/decimal. They are presentation data
  only - credits are granted from the integer credit mapping, never
  derived from price arithmetic.

SEE ALSO:
  - config.go: YAML loading
  - redeem/coordinator.go: the irrelevant-product check
*/
package catalog

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCT
// =============================================================================

// Product is a single purchasable credit pack.
type Product struct {
	// ID is the platform product identifier (e.g. "credits_10").
	ID string

	// Name is the user-facing display name.
	Name string

	// Price is the display price. Presentation only.
	Price decimal.Decimal

	// Currency is the ISO 4217 code for Price.
	Currency string

	// Credits is the number of credits granted on redemption.
	Credits int64
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is the immutable set of known credit packs.
type Catalog struct {
	products map[string]Product
	order    []string
}

// New builds a catalog from the given products. Product IDs must be unique
// and every pack must grant a positive number of credits.
func New(products ...Product) (*Catalog, error) {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog: product with empty id")
		}
		if p.Credits <= 0 {
			return nil, fmt.Errorf("catalog: product %q grants %d credits; must be positive", p.ID, p.Credits)
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		c.products[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Credits returns the credit value for a product identifier.
// ok is false when the product is not a known credit pack.
func (c *Catalog) Credits(productID string) (int64, bool) {
	p, ok := c.products[productID]
	if !ok {
		return 0, false
	}
	return p.Credits, true
}

// Contains reports whether the product identifier is a known credit pack.
func (c *Catalog) Contains(productID string) bool {
	_, ok := c.products[productID]
	return ok
}

// Product returns the full product record for an identifier.
func (c *Catalog) Product(productID string) (Product, bool) {
	p, ok := c.products[productID]
	return p, ok
}

// Products returns all packs in their declared order.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}

// IDs returns the sorted set of known product identifiers.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in pack set shipped with the app.
func Default() *Catalog {
	c, err := New(
		Product{ID: "credits_10", Name: "10 Credits", Price: decimal.RequireFromString("1.99"), Currency: "USD", Credits: 10},
		Product{ID: "credits_50", Name: "50 Credits", Price: decimal.RequireFromString("7.99"), Currency: "USD", Credits: 50},
		Product{ID: "credits_200", Name: "200 Credits", Price: decimal.RequireFromString("24.99"), Currency: "USD", Credits: 200},
	)
	if err != nil {
		panic(err) // built-in catalog is validated by tests
	}
	return c
}
