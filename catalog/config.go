/*
config.go - YAML catalog configuration

PURPOSE:
  Lets deployments override the built-in pack set without a rebuild.
  The ledger daemon and the app load the same file, keeping the
  product -> credits mapping identical on both sides.

FORMAT:
  products:
    - id: credits_10
      name: "10 Credits"
      price: "1.99"
      currency: USD
      credits: 10
*/
package catalog

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// productYAML is the on-disk shape of a single pack.
type productYAML struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Price    string `yaml:"price"`
	Currency string `yaml:"currency"`
	Credits  int64  `yaml:"credits"`
}

type fileYAML struct {
	Products []productYAML `yaml:"products"`
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var f fileYAML
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse yaml: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("catalog: no products defined")
	}

	products := make([]Product, 0, len(f.Products))
	for _, p := range f.Products {
		price := decimal.Zero
		if p.Price != "" {
			var err error
			price, err = decimal.NewFromString(p.Price)
			if err != nil {
				return nil, fmt.Errorf("catalog: product %q: invalid price %q: %w", p.ID, p.Price, err)
			}
		}
		currency := p.Currency
		if currency == "" {
			currency = "USD"
		}
		products = append(products, Product{
			ID:       p.ID,
			Name:     p.Name,
			Price:    price,
			Currency: currency,
			Credits:  p.Credits,
		})
	}
	return New(products...)
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}
