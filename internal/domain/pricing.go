package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountMode selects how DiscountValue is applied to the base price.
type DiscountMode string

const (
	DiscountPercentage  DiscountMode = "PERCENTAGE"
	DiscountFixedAmount DiscountMode = "FIXED_AMOUNT"
)

func (m DiscountMode) Valid() bool {
	return m == DiscountPercentage || m == DiscountFixedAmount
}

// MarginStatus classifies the health of a product line's profit margin.
type MarginStatus string

const (
	StatusExcellent MarginStatus = "EXCELLENT"
	StatusGood      MarginStatus = "GOOD"
	StatusWarning   MarginStatus = "WARNING"
)

// Margin thresholds, in percent. Business policy.
const (
	ExcellentMarginThreshold = 30
	GoodMarginThreshold      = 15
)

var (
	hundred         = decimal.NewFromInt(100)
	excellentMargin = decimal.NewFromInt(ExcellentMarginThreshold)
	goodMargin      = decimal.NewFromInt(GoodMarginThreshold)
)

// DiscountSource is the promotion channel a campaign discount runs through.
type DiscountSource string

const (
	SourceDiscountCode DiscountSource = "CODE"
	SourceLicense      DiscountSource = "LICENSE"
)

// Deliverable is a content piece requested for a product during a campaign.
type Deliverable struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Pricing holds the values derived from a product line's inputs.
type Pricing struct {
	FinalPrice       decimal.Decimal `json:"final_price"`
	NetProfit        decimal.Decimal `json:"net_profit"`
	ProfitMarginPct  decimal.Decimal `json:"profit_margin_pct"`
	TotalDiscountPct decimal.Decimal `json:"total_discount_pct"`
	Status           MarginStatus    `json:"status"`
}

// ProductSpec is the caller-supplied part of a product line.
type ProductSpec struct {
	Name           string          `json:"name"`
	BasePrice      decimal.Decimal `json:"base_price"`
	DiscountMode   DiscountMode    `json:"discount_mode"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	Cost           decimal.Decimal `json:"cost"`
	DiscountSource DiscountSource  `json:"discount_source,omitempty"`
	DiscountCode   string          `json:"discount_code,omitempty"`
	Videos         []Deliverable   `json:"videos,omitempty"`
	Designs        []Deliverable   `json:"designs,omitempty"`
}

// ProductLine is a priced product owned by a campaign or a pricing plan.
type ProductLine struct {
	ProductSpec
	Pricing
	AddedAt time.Time `json:"added_at"`
}

// Validate checks the non-arithmetic parts of a spec. Arithmetic bounds are
// enforced by ComputePricing.
func (s ProductSpec) Validate() error {
	if s.Name == "" {
		return Validationf("product name is required")
	}
	if s.DiscountSource != "" && s.DiscountSource != SourceDiscountCode && s.DiscountSource != SourceLicense {
		return Validationf("unknown discount source %q", s.DiscountSource)
	}
	for _, d := range append(append([]Deliverable{}, s.Videos...), s.Designs...) {
		if d.Type == "" || d.Count < 1 {
			return Validationf("deliverable needs a type and a positive count")
		}
	}
	return nil
}

// NewProductLine validates spec and derives its pricing.
func NewProductLine(spec ProductSpec, addedAt time.Time) (ProductLine, error) {
	if err := spec.Validate(); err != nil {
		return ProductLine{}, err
	}
	p, err := ComputePricing(spec.BasePrice, spec.DiscountMode, spec.DiscountValue, spec.Cost)
	if err != nil {
		return ProductLine{}, err
	}
	return ProductLine{ProductSpec: spec, Pricing: p, AddedAt: addedAt}, nil
}

// ComputePricing derives final price, profit, margin and status. The final
// price is kept at cent precision; margin and status use that value unrounded
// to whole units.
func ComputePricing(base decimal.Decimal, mode DiscountMode, value, cost decimal.Decimal) (Pricing, error) {
	switch {
	case base.IsNegative():
		return Pricing{}, fmt.Errorf("%w: base price must not be negative", ErrInvalidInput)
	case value.IsNegative():
		return Pricing{}, fmt.Errorf("%w: discount must not be negative", ErrInvalidInput)
	case cost.IsNegative():
		return Pricing{}, fmt.Errorf("%w: cost must not be negative", ErrInvalidInput)
	}

	var final decimal.Decimal
	switch mode {
	case DiscountPercentage:
		if value.GreaterThan(hundred) {
			return Pricing{}, fmt.Errorf("%w: percentage discount above 100", ErrInvalidInput)
		}
		final = base.Mul(hundred.Sub(value)).Div(hundred)
	case DiscountFixedAmount:
		if value.GreaterThan(base) {
			return Pricing{}, fmt.Errorf("%w: fixed discount exceeds base price", ErrInvalidInput)
		}
		final = base.Sub(value)
	default:
		return Pricing{}, fmt.Errorf("%w: unknown discount mode %q", ErrInvalidInput, mode)
	}

	final = final.Round(2)
	if final.IsNegative() {
		final = decimal.Zero
	}

	net := final.Sub(cost)
	margin := decimal.Zero
	if final.IsPositive() {
		margin = net.Div(final).Mul(hundred)
	}

	totalDiscount := decimal.Zero
	if base.IsPositive() {
		totalDiscount = base.Sub(final).Div(base).Mul(hundred)
	}

	return Pricing{
		FinalPrice:       final,
		NetProfit:        net,
		ProfitMarginPct:  margin,
		TotalDiscountPct: totalDiscount,
		Status:           ClassifyMargin(margin),
	}, nil
}

// ClassifyMargin maps a margin percentage to its status.
func ClassifyMargin(marginPct decimal.Decimal) MarginStatus {
	switch {
	case marginPct.GreaterThanOrEqual(excellentMargin):
		return StatusExcellent
	case marginPct.GreaterThanOrEqual(goodMargin):
		return StatusGood
	default:
		return StatusWarning
	}
}

// DisplayAmount rounds a currency value to whole units, half to even.
func DisplayAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(0)
}

// DisplayPercent rounds a percentage to two places for reports.
func DisplayPercent(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
