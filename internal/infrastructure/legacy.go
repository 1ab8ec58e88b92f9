package infrastructure

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"campaignledger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Records written before the ledger had typed entities use Arabic or English
// keys, string prices with a currency suffix and no ids. The types here accept
// every known shape and convert to the canonical domain record. Canonical
// records marshal back in the canonical shape only.

const legacyTimeLayout = "2006-01-02 15:04:05"

var legacyTimeFormats = []string{
	time.RFC3339Nano,
	legacyTimeLayout,
	"2006-01-02T15:04:05",
	domain.DateLayout,
}

// flexDecimal decodes numbers, numeric strings and strings such as "100 ر.س".
type flexDecimal struct {
	decimal.Decimal
	Set bool
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = keepNumeric(str)
		if s == "" {
			return nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", string(b), err)
	}
	f.Decimal, f.Set = d, true
	return nil
}

// keepNumeric extracts the first number in s, ignoring currency text and
// thousands separators.
func keepNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		case r == '.' && b.Len() > 0 && !strings.Contains(b.String(), "."):
			b.WriteRune(r)
		case r == ',' || r == '٬':
		default:
			if b.Len() > 0 {
				return strings.TrimRight(b.String(), ".")
			}
		}
	}
	return strings.TrimRight(b.String(), ".")
}

func parseLegacyTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, format := range legacyTimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstDecimal(values ...flexDecimal) flexDecimal {
	for _, v := range values {
		if v.Set {
			return v
		}
	}
	return flexDecimal{}
}

// legacyID derives a stable id so unsaved reads agree with the write-back.
func legacyID(kind string, parts ...string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(kind+":"+strings.Join(parts, "|"))).String()
}

// legacyDeliverables decodes either {type, count} objects or bare type names.
// Bare names get their count from a separate counts map, default 1.
type legacyDeliverables struct {
	items []domain.Deliverable
	names []string
}

func (d *legacyDeliverables) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &d.items); err == nil {
		return nil
	}
	d.items = nil
	if err := json.Unmarshal(b, &d.names); err != nil {
		return fmt.Errorf("invalid deliverables %s: %w", string(b), err)
	}
	return nil
}

func (d legacyDeliverables) empty() bool {
	return len(d.items) == 0 && len(d.names) == 0
}

func (d legacyDeliverables) resolve(counts map[string]flexDecimal) []domain.Deliverable {
	if len(d.items) > 0 {
		return d.items
	}
	var out []domain.Deliverable
	for _, name := range d.names {
		count := 1
		if n, ok := counts[name]; ok && n.Set && n.IntPart() > 0 {
			count = int(n.IntPart())
		}
		out = append(out, domain.Deliverable{Type: name, Count: count})
	}
	return out
}

// legacyLogoDir is where logos were kept relative to the old working
// directory. Logo paths are now relative to the asset store.
const legacyLogoDir = "campaign_logos/"

func normalizeLogoPath(path string) (string, bool) {
	p := strings.TrimPrefix(strings.ReplaceAll(path, "\\", "/"), "./")
	if !strings.HasPrefix(p, legacyLogoDir) {
		return path, false
	}
	return strings.TrimPrefix(p, legacyLogoDir), true
}

// legacyProduct covers every product shape seen in campaign and plan files.
type legacyProduct struct {
	// canonical
	Name          string               `json:"name"`
	BasePrice     flexDecimal          `json:"base_price"`
	DiscountMode  domain.DiscountMode  `json:"discount_mode"`
	DiscountValue flexDecimal          `json:"discount_value"`
	Cost          flexDecimal          `json:"cost"`
	Source        string               `json:"discount_source"`
	Code          string               `json:"discount_code"`
	Videos        []domain.Deliverable `json:"videos"`
	Designs       []domain.Deliverable `json:"designs"`
	AddedAt       string               `json:"added_at"`

	// campaign planner
	ProductName   string      `json:"product_name"`
	CurrentPrice  flexDecimal `json:"current_price"`
	CampaignPrice flexDecimal `json:"campaign_price"`
	DiscountType  string      `json:"discount_type"`

	// plan catalog snapshot
	AfterCode flexDecimal `json:"after_code"`

	// Arabic keys
	ArName          string                 `json:"المنتج"`
	ArCurrentPrice  flexDecimal            `json:"السعر الحالي"`
	ArCampaignPrice flexDecimal            `json:"السعر بعد الخصم"`
	ArCode          string                 `json:"كود الخصم"`
	ArCost          flexDecimal            `json:"التكلفة"`
	ArVideos        legacyDeliverables     `json:"أنواع الفيديوهات"`
	ArVideoCounts   map[string]flexDecimal `json:"عدد الفيديوهات"`
}

var discountSources = map[string]domain.DiscountSource{
	"كود خصم":    domain.SourceDiscountCode,
	"رخصة تخفيض": domain.SourceLicense,
	"CODE":       domain.SourceDiscountCode,
	"LICENSE":    domain.SourceLicense,
}

// spec converts the product to a canonical spec. Legacy campaign products
// become a fixed discount from the current to the campaign price; legacy plan
// products become a percentage discount from base to after-code price.
func (p legacyProduct) spec() domain.ProductSpec {
	spec := domain.ProductSpec{
		Name:           firstString(p.Name, p.ProductName, p.ArName),
		DiscountCode:   firstString(p.Code, p.ArCode),
		DiscountSource: discountSources[firstString(p.Source, p.DiscountType)],
		Videos:         p.Videos,
		Designs:        p.Designs,
		Cost:           firstDecimal(p.Cost, p.ArCost).Decimal,
	}
	if len(spec.Videos) == 0 {
		spec.Videos = p.ArVideos.resolve(p.ArVideoCounts)
	}

	switch {
	case p.DiscountMode.Valid():
		spec.BasePrice = p.BasePrice.Decimal
		spec.DiscountMode = p.DiscountMode
		spec.DiscountValue = p.DiscountValue.Decimal
	case p.AfterCode.Set:
		spec.BasePrice = p.BasePrice.Decimal
		spec.DiscountMode = domain.DiscountPercentage
		if p.BasePrice.IsPositive() {
			spec.DiscountValue = p.BasePrice.Sub(p.AfterCode.Decimal).Div(p.BasePrice.Decimal).Mul(decimal.NewFromInt(100))
		}
	default:
		current := firstDecimal(p.CurrentPrice, p.ArCurrentPrice, p.BasePrice).Decimal
		campaign := firstDecimal(p.CampaignPrice, p.ArCampaignPrice)
		spec.BasePrice = current
		spec.DiscountMode = domain.DiscountFixedAmount
		if campaign.Set {
			spec.DiscountValue = current.Sub(campaign.Decimal)
		}
	}

	if spec.BasePrice.IsNegative() {
		spec.BasePrice = decimal.Zero
	}
	if spec.DiscountValue.IsNegative() {
		spec.DiscountValue = decimal.Zero
	}
	if spec.DiscountMode == domain.DiscountPercentage && spec.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		spec.DiscountValue = decimal.NewFromInt(100)
	}
	if spec.DiscountMode == domain.DiscountFixedAmount && spec.DiscountValue.GreaterThan(spec.BasePrice) {
		spec.DiscountValue = spec.BasePrice
	}
	if spec.Cost.IsNegative() {
		spec.Cost = decimal.Zero
	}
	return spec
}

// line recomputes derived pricing so stored values never drift from inputs.
func (p legacyProduct) line() (domain.ProductLine, error) {
	spec := p.spec()
	pricing, err := domain.ComputePricing(spec.BasePrice, spec.DiscountMode, spec.DiscountValue, spec.Cost)
	if err != nil {
		return domain.ProductLine{}, fmt.Errorf("product %q: %w", spec.Name, err)
	}
	addedAt, _ := parseLegacyTime(p.AddedAt)
	return domain.ProductLine{ProductSpec: spec, Pricing: pricing, AddedAt: addedAt}, nil
}

func (p legacyProduct) isCanonical() bool {
	return p.DiscountMode.Valid() && p.Name != "" && p.ArVideos.empty()
}

func decodeProducts(raw []legacyProduct) ([]domain.ProductLine, bool, error) {
	lines := make([]domain.ProductLine, 0, len(raw))
	migrated := false
	for _, p := range raw {
		line, err := p.line()
		if err != nil {
			return nil, false, err
		}
		if !p.isCanonical() {
			migrated = true
		}
		lines = append(lines, line)
	}
	return lines, migrated, nil
}

// campaignRecord is the on-disk form of a campaign.
type campaignRecord struct {
	domain.Campaign
	migrated bool
}

type legacyCampaign struct {
	ID           string          `json:"id"`
	Name         string          `json:"campaign_name"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	CalendarType string          `json:"calendar_type"`
	LogoPath     string          `json:"logo_path"`
	CreatedBy    string          `json:"created_by"`
	CreatedAt    string          `json:"created_at"`
	Products     []legacyProduct `json:"products"`
	Deleted      bool            `json:"deleted"`
	DeletedAt    string          `json:"deleted_at"`
	DeletedBy    string          `json:"deleted_by"`
}

var calendarTypes = map[string]domain.CalendarType{
	"ميلادي":    domain.CalendarGregorian,
	"هجري":      domain.CalendarHijri,
	"GREGORIAN": domain.CalendarGregorian,
	"HIJRI":     domain.CalendarHijri,
}

func (r campaignRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Campaign)
}

func (r *campaignRecord) UnmarshalJSON(b []byte) error {
	var raw legacyCampaign
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	start, err := domain.ParseDate(raw.StartDate)
	if err != nil {
		return fmt.Errorf("campaign %q: %w", raw.Name, err)
	}
	end, err := domain.ParseDate(raw.EndDate)
	if err != nil {
		return fmt.Errorf("campaign %q: %w", raw.Name, err)
	}
	products, migrated, err := decodeProducts(raw.Products)
	if err != nil {
		return fmt.Errorf("campaign %q: %w", raw.Name, err)
	}

	c := domain.Campaign{
		ID:           raw.ID,
		Name:         raw.Name,
		StartDate:    start,
		EndDate:      end,
		CalendarType: calendarTypes[raw.CalendarType],
		LogoPath:     raw.LogoPath,
		CreatedBy:    raw.CreatedBy,
		Products:     products,
		Deleted:      raw.Deleted,
	}
	if c.CalendarType == "" {
		c.CalendarType = domain.CalendarGregorian
		migrated = true
	}
	if logo, changed := normalizeLogoPath(c.LogoPath); changed {
		c.LogoPath = logo
		migrated = true
	}
	if t, ok := parseLegacyTime(raw.CreatedAt); ok {
		c.CreatedAt = t
	}
	if c.ID == "" {
		c.ID = legacyID("campaign", raw.Name, raw.CreatedAt, raw.StartDate)
		migrated = true
	}
	if c.Deleted {
		if t, ok := parseLegacyTime(raw.DeletedAt); ok {
			c.DeletedAt = &t
		}
		c.DeletedBy = raw.DeletedBy
	}

	r.Campaign, r.migrated = c, migrated
	return nil
}

// planRecord is the on-disk form of a pricing plan.
type planRecord struct {
	domain.PricingPlan
	migrated bool
}

type legacyPlan struct {
	ID              string          `json:"id"`
	PlanName        string          `json:"plan_name"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	CreatedAt       string          `json:"created_at"`
	CampaignID      string          `json:"campaign_id"`
	MinProfitMargin flexDecimal     `json:"min_profit_margin"`
	Products        []legacyProduct `json:"products"`
}

func (r planRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.PricingPlan)
}

func (r *planRecord) UnmarshalJSON(b []byte) error {
	var raw legacyPlan
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	products, migrated, err := decodeProducts(raw.Products)
	if err != nil {
		return fmt.Errorf("plan %q: %w", firstString(raw.PlanName, raw.Name), err)
	}

	p := domain.PricingPlan{
		ID:          raw.ID,
		Name:        firstString(raw.PlanName, raw.Name),
		Description: raw.Description,
		CampaignID:  raw.CampaignID,
		Products:    products,
	}
	if raw.PlanName == "" {
		migrated = true
	}
	if raw.MinProfitMargin.Set {
		m := raw.MinProfitMargin.Decimal
		p.MinProfitMargin = &m
	}
	if t, ok := parseLegacyTime(raw.CreatedAt); ok {
		p.CreatedAt = t
	}
	if p.ID == "" {
		p.ID = legacyID("plan", p.Name, raw.CreatedAt)
		migrated = true
	}

	r.PricingPlan, r.migrated = p, migrated
	return nil
}

// catalogRecord is one products_pricing entry; prices may be strings.
type catalogRecord struct {
	BasePrice           flexDecimal `json:"base_price"`
	AfterDiscount       flexDecimal `json:"after_discount"`
	AfterCode           flexDecimal `json:"after_code"`
	BaseDiscountPercent flexDecimal `json:"base_discount_percent"`
	CodeDiscountPercent flexDecimal `json:"code_discount_percent"`
}

func (r catalogRecord) entry(name string) domain.CatalogEntry {
	return domain.CatalogEntry{
		Name:                name,
		BasePrice:           r.BasePrice.Decimal,
		AfterDiscount:       r.AfterDiscount.Decimal,
		AfterCode:           firstDecimal(r.AfterCode, r.AfterDiscount, r.BasePrice).Decimal,
		BaseDiscountPercent: r.BaseDiscountPercent.Decimal,
		CodeDiscountPercent: r.CodeDiscountPercent.Decimal,
	}
}
