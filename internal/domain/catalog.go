package domain

import "github.com/shopspring/decimal"

// CatalogEntry is a read-only reference price for a product.
type CatalogEntry struct {
	Name                string          `json:"-"`
	BasePrice           decimal.Decimal `json:"base_price"`
	AfterDiscount       decimal.Decimal `json:"after_discount"`
	AfterCode           decimal.Decimal `json:"after_code"`
	BaseDiscountPercent decimal.Decimal `json:"base_discount_percent"`
	CodeDiscountPercent decimal.Decimal `json:"code_discount_percent"`
}

// defaultCostRatio estimates cost when none is given.
var defaultCostRatio = decimal.NewFromFloat(0.5)

// DefaultCost is half of the lowest catalog price.
func (e CatalogEntry) DefaultCost() decimal.Decimal {
	return e.AfterCode.Mul(defaultCostRatio)
}

// TotalDiscountPercent is the combined discount from base price to the price
// after the code, or zero for a free product.
func (e CatalogEntry) TotalDiscountPercent() decimal.Decimal {
	if !e.BasePrice.IsPositive() {
		return decimal.Zero
	}
	return e.BasePrice.Sub(e.AfterCode).Div(e.BasePrice).Mul(hundred)
}

// ProductSpec builds a percentage-discount spec from the catalog entry. A nil
// cost falls back to DefaultCost.
func (e CatalogEntry) ProductSpec(cost *decimal.Decimal) ProductSpec {
	c := e.DefaultCost()
	if cost != nil {
		c = *cost
	}
	discount := e.TotalDiscountPercent()
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return ProductSpec{
		Name:          e.Name,
		BasePrice:     e.BasePrice,
		DiscountMode:  DiscountPercentage,
		DiscountValue: discount,
		Cost:          c,
	}
}
