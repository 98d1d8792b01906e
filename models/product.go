// Package models defines data structures for the price analyzer.
package models

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"
)

// Product is one row of the analyzed catalog. Competitor prices start out
// nil and are only set by a successful search; LastUpdated is stamped on
// every field mutation.
type Product struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	Quantity            int        `json:"quantity"`
	PurchasePrice       float64    `json:"purchase_price"`
	SalePrice           float64    `json:"sale_price"`
	CompetitorNewPrice  *float64   `json:"competitor_new_price,omitempty"`
	CompetitorUsedPrice *float64   `json:"competitor_used_price,omitempty"`
	LastUpdated         *time.Time `json:"last_updated,omitempty"`
}

var idCounter uint64

// NewProductID returns a unique id. The atomic counter suffix makes rapid
// bulk inserts within the same millisecond safe.
func NewProductID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixMilli(), atomic.AddUint64(&idCounter, 1))
}

// ValidateProduct ensures a product conforms to the catalog invariants.
func ValidateProduct(p *Product) error {
	if p == nil {
		return fmt.Errorf("product is nil")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product missing name")
	}
	if p.Quantity < 0 {
		return fmt.Errorf("negative quantity for %s", p.Name)
	}
	if err := validatePrice("purchase price", p.PurchasePrice); err != nil {
		return fmt.Errorf("%w for %s", err, p.Name)
	}
	if err := validatePrice("sale price", p.SalePrice); err != nil {
		return fmt.Errorf("%w for %s", err, p.Name)
	}
	if p.CompetitorNewPrice != nil {
		if err := validatePrice("competitor new price", *p.CompetitorNewPrice); err != nil {
			return fmt.Errorf("%w for %s", err, p.Name)
		}
	}
	if p.CompetitorUsedPrice != nil {
		if err := validatePrice("competitor used price", *p.CompetitorUsedPrice); err != nil {
			return fmt.Errorf("%w for %s", err, p.Name)
		}
	}
	return nil
}

func validatePrice(label string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s is not finite", label)
	}
	if v < 0 {
		return fmt.Errorf("%s is negative", label)
	}
	return nil
}
