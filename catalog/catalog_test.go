package catalog_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveform/credit-engine/catalog"
)

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNew_RejectsInvalidProducts(t *testing.T) {
	// Empty id
	_, err := catalog.New(catalog.Product{ID: "", Credits: 10})
	assert.Error(t, err)

	// Non-positive credits
	_, err = catalog.New(catalog.Product{ID: "credits_0", Credits: 0})
	assert.Error(t, err)

	// Duplicate id
	_, err = catalog.New(
		catalog.Product{ID: "credits_10", Credits: 10},
		catalog.Product{ID: "credits_10", Credits: 20},
	)
	assert.Error(t, err)
}

func TestCatalog_Lookups(t *testing.T) {
	c, err := catalog.New(
		catalog.Product{ID: "credits_10", Name: "10 Credits", Credits: 10},
		catalog.Product{ID: "credits_50", Name: "50 Credits", Credits: 50},
	)
	require.NoError(t, err)

	credits, ok := c.Credits("credits_50")
	assert.True(t, ok)
	assert.Equal(t, int64(50), credits)

	_, ok = c.Credits("sub_monthly")
	assert.False(t, ok, "unknown products are not credit packs")

	assert.True(t, c.Contains("credits_10"))
	assert.False(t, c.Contains("credits_999"))

	// Declared order is preserved for display
	products := c.Products()
	require.Len(t, products, 2)
	assert.Equal(t, "credits_10", products[0].ID)
	assert.Equal(t, "credits_50", products[1].ID)
}

func TestDefault_IsValid(t *testing.T) {
	c := catalog.Default()
	credits, ok := c.Credits("credits_10")
	require.True(t, ok)
	assert.Equal(t, int64(10), credits)
	assert.NotEmpty(t, c.Products())
}

// =============================================================================
// YAML CONFIG
// =============================================================================

func TestParse_YAML(t *testing.T) {
	data := []byte(`
products:
  - id: credits_25
    name: "25 Credits"
    price: "4.99"
    currency: EUR
    credits: 25
  - id: credits_100
    name: "100 Credits"
    price: "14.99"
    credits: 100
`)
	c, err := catalog.Parse(data)
	require.NoError(t, err)

	p, ok := c.Product("credits_25")
	require.True(t, ok)
	assert.Equal(t, "25 Credits", p.Name)
	assert.Equal(t, "EUR", p.Currency)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("4.99")))

	p, ok = c.Product("credits_100")
	require.True(t, ok)
	assert.Equal(t, "USD", p.Currency, "currency defaults to USD")
	assert.Equal(t, int64(100), p.Credits)
}

func TestParse_Rejections(t *testing.T) {
	// No products
	_, err := catalog.Parse([]byte(`products: []`))
	assert.Error(t, err)

	// Bad price
	_, err = catalog.Parse([]byte(`
products:
  - id: credits_1
    price: "not-a-number"
    credits: 1
`))
	assert.Error(t, err)

	// Not YAML at all
	_, err = catalog.Parse([]byte(`{{{`))
	assert.Error(t, err)
}
