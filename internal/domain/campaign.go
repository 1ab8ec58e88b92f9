package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day without time of day, serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate builds a calendar day at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day t falls on.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, Validationf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysUntil returns the whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// CalendarType records which calendar the campaign dates were entered in.
// Stored dates are always Gregorian.
type CalendarType string

const (
	CalendarGregorian CalendarType = "GREGORIAN"
	CalendarHijri     CalendarType = "HIJRI"
)

// CampaignState is derived from the deleted flag and the dates.
type CampaignState string

const (
	CampaignCurrent  CampaignState = "CURRENT"
	CampaignUpcoming CampaignState = "UPCOMING"
	CampaignEnded    CampaignState = "ENDED"
	CampaignTrashed  CampaignState = "TRASHED"
)

type Campaign struct {
	ID           string        `json:"id"`
	Name         string        `json:"campaign_name"`
	StartDate    Date          `json:"start_date"`
	EndDate      Date          `json:"end_date"`
	CalendarType CalendarType  `json:"calendar_type"`
	LogoPath     string        `json:"logo_path,omitempty"`
	CreatedBy    string        `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	Products     []ProductLine `json:"products"`
	Deleted      bool          `json:"deleted"`
	DeletedAt    *time.Time    `json:"deleted_at,omitempty"`
	DeletedBy    string        `json:"deleted_by,omitempty"`
}

// ValidateCampaignDates requires both days to be set and end after start.
func ValidateCampaignDates(start, end Date) error {
	if start.IsZero() {
		return Validationf("start date is required")
	}
	if end.IsZero() {
		return Validationf("end date is required")
	}
	if !end.After(start.Time) {
		return Validationf("end date %s must be after start date %s", end, start)
	}
	return nil
}

// StateOn derives the campaign state for the given day.
func (c Campaign) StateOn(today Date) CampaignState {
	switch {
	case c.Deleted:
		return CampaignTrashed
	case today.Before(c.StartDate.Time):
		return CampaignUpcoming
	case today.After(c.EndDate.Time):
		return CampaignEnded
	default:
		return CampaignCurrent
	}
}

// ProductIndex returns the position of the named product, or -1.
func (c Campaign) ProductIndex(name string) int {
	return productIndex(c.Products, name)
}

// CampaignCard is the dashboard view of a current or upcoming campaign.
type CampaignCard struct {
	Campaign       Campaign      `json:"campaign"`
	State          CampaignState `json:"state"`
	DaysRemaining  int           `json:"days_remaining"`
	DaysUntilStart int           `json:"days_until_start"`
}

// Dashboard pairs the current and the upcoming campaign. Either may be nil.
type Dashboard struct {
	Today    Date          `json:"today"`
	Current  *CampaignCard `json:"current"`
	Upcoming *CampaignCard `json:"upcoming"`
}

// NewCampaignCard computes the day counters for c relative to today.
func NewCampaignCard(c Campaign, today Date) *CampaignCard {
	card := &CampaignCard{Campaign: c, State: c.StateOn(today)}
	if d := today.DaysUntil(c.EndDate); d > 0 {
		card.DaysRemaining = d
	}
	if d := today.DaysUntil(c.StartDate); d > 0 {
		card.DaysUntilStart = d
	}
	return card
}

// PurgeReport describes the outcome of a bulk purge. A purged campaign whose
// asset could not be released is listed in both Purged and AssetFailures.
type PurgeReport struct {
	Purged        []string          `json:"purged"`
	Failed        map[string]string `json:"failed,omitempty"`
	AssetFailures map[string]string `json:"asset_failures,omitempty"`
}

func productIndex(products []ProductLine, name string) int {
	for i, p := range products {
		if p.Name == name {
			return i
		}
	}
	return -1
}
