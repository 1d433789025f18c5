/*
factory.go - JSON to Go contract conversion

PURPOSE:
  Converts JSON contract definitions into royalty.Contract values. This
  enables contract setup without code changes - a royalty manager can
  define terms in JSON, and the factory builds validated schedules.

JSON SCHEMA:
  {
    "id": "con-1001",
    "author_id": "auth-1",
    "title_id": "title-1",
    "mode": "lifetime",
    "currency": "USD",
    "advance_paid": 5000,
    "advance_recouped": 1200,
    "schedules": [
      {
        "format": "hardcover",
        "bands": [
          {"min_quantity": 0, "rate": "0.10"},
          {"min_quantity": 5000, "rate": "0.125"},
          {"min_quantity": 10000, "rate": "0.15"}
        ]
      }
    ]
  }

KEY FEATURES:
  - Rates are decimal strings so terms survive the round trip exactly
  - Schedules pass royalty.NewTierSchedule validation; a malformed band
    list fails here, never inside a calculation
  - Formats resolve through the format registry

USAGE:
  factory := catalog.NewContractFactory()
  contract, err := factory.ParseContract(jsonString)

SEE ALSO:
  - royalty/schedule.go: The validation this factory defers to
  - plans.go: Go-based preset schedules
*/
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/royalty-engine/royalty"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ContractJSON is the JSON representation of a contract.
type ContractJSON struct {
	ID              string         `json:"id"`
	AuthorID        string         `json:"author_id"`
	TitleID         string         `json:"title_id"`
	Mode            string         `json:"mode"`               // period | lifetime
	Currency        string         `json:"currency,omitempty"` // default USD
	AdvancePaid     float64        `json:"advance_paid,omitempty"`
	AdvanceRecouped float64        `json:"advance_recouped,omitempty"`
	Schedules       []ScheduleJSON `json:"schedules"`
}

// ScheduleJSON represents one format's tier schedule.
type ScheduleJSON struct {
	Format string     `json:"format"`
	Bands  []BandJSON `json:"bands"`
}

// BandJSON represents a single tier band. Rate is a decimal string
// ("0.125"), never a float, so contract terms stay exact.
type BandJSON struct {
	MinQuantity int64  `json:"min_quantity"`
	Rate        string `json:"rate"`
}

// =============================================================================
// CONTRACT FACTORY
// =============================================================================

// ContractFactory converts JSON contracts to royalty.Contract values.
type ContractFactory struct{}

// NewContractFactory creates a new contract factory.
func NewContractFactory() *ContractFactory {
	return &ContractFactory{}
}

// ParseContract parses a JSON string into a Contract.
func (f *ContractFactory) ParseContract(jsonStr string) (*royalty.Contract, error) {
	var cj ContractJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse contract JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// FromJSON converts ContractJSON to a royalty.Contract.
func (f *ContractFactory) FromJSON(cj ContractJSON) (*royalty.Contract, error) {
	if cj.ID == "" || cj.AuthorID == "" || cj.TitleID == "" {
		return nil, fmt.Errorf("contract needs id, author_id and title_id")
	}
	if len(cj.Schedules) == 0 {
		return nil, fmt.Errorf("contract %s has no schedules", cj.ID)
	}

	currency := parseCurrency(cj.Currency)

	schedules, err := SchedulesFromJSON(cj.Schedules)
	if err != nil {
		return nil, err
	}

	return &royalty.Contract{
		ID:              royalty.ContractID(cj.ID),
		AuthorID:        royalty.AuthorID(cj.AuthorID),
		TitleID:         royalty.TitleID(cj.TitleID),
		Schedules:       schedules,
		Mode:            parseMode(cj.Mode),
		Currency:        currency,
		AdvancePaid:     royalty.NewMoney(cj.AdvancePaid, currency),
		AdvanceRecouped: royalty.NewMoney(cj.AdvanceRecouped, currency),
	}, nil
}

// ToJSON converts a Contract back to its JSON representation.
func (f *ContractFactory) ToJSON(c royalty.Contract) ContractJSON {
	cj := ContractJSON{
		ID:       string(c.ID),
		AuthorID: string(c.AuthorID),
		TitleID:  string(c.TitleID),
		Mode:     string(c.Mode),
		Currency: string(c.Currency),
	}
	cj.AdvancePaid, _ = c.AdvancePaid.Value.Float64()
	cj.AdvanceRecouped, _ = c.AdvanceRecouped.Value.Float64()
	cj.Schedules = SchedulesToJSON(c.Schedules)
	return cj
}

// =============================================================================
// SCHEDULE WIRE FORMAT
// =============================================================================

// SchedulesFromJSON builds validated tier schedules from their JSON form.
// Formats resolve through the registry; unregistered formats still parse so
// stored contracts outlive catalog changes. This is the shared wire format
// for contract schedules, used by both the API and the SQLite store.
func SchedulesFromJSON(list []ScheduleJSON) (map[string]royalty.TierSchedule, error) {
	schedules := make(map[string]royalty.TierSchedule, len(list))
	for _, sj := range list {
		format := royalty.GetOrCreateFormat(sj.Format)
		schedule, err := parseSchedule(format.FormatID(), sj)
		if err != nil {
			return nil, err
		}
		schedules[format.FormatID()] = schedule
	}
	return schedules, nil
}

// SchedulesToJSON renders schedules in stable (sorted) format order.
func SchedulesToJSON(schedules map[string]royalty.TierSchedule) []ScheduleJSON {
	out := make([]ScheduleJSON, 0, len(schedules))
	for _, formatID := range sortedScheduleKeys(schedules) {
		schedule := schedules[formatID]
		sj := ScheduleJSON{Format: formatID}
		for _, b := range schedule.Bands() {
			sj.Bands = append(sj.Bands, BandJSON{
				MinQuantity: b.MinQuantity,
				Rate:        b.Rate.String(),
			})
		}
		out = append(out, sj)
	}
	return out
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseSchedule(formatID string, sj ScheduleJSON) (royalty.TierSchedule, error) {
	bands := make([]royalty.Band, 0, len(sj.Bands))
	for i, bj := range sj.Bands {
		r, err := decimal.NewFromString(bj.Rate)
		if err != nil {
			return royalty.TierSchedule{}, fmt.Errorf("schedule %s band %d: bad rate %q: %w", formatID, i, bj.Rate, err)
		}
		bands = append(bands, royalty.Band{MinQuantity: bj.MinQuantity, Rate: r})
	}
	return royalty.NewTierSchedule(formatID, bands)
}

func parseMode(s string) royalty.Mode {
	switch s {
	case string(royalty.ModeLifetime):
		return royalty.ModeLifetime
	default:
		return royalty.ModePeriod
	}
}

func parseCurrency(s string) royalty.Currency {
	switch s {
	case string(royalty.EUR):
		return royalty.EUR
	case string(royalty.GBP):
		return royalty.GBP
	case string(royalty.JPY):
		return royalty.JPY
	default:
		return royalty.USD
	}
}

func sortedScheduleKeys(schedules map[string]royalty.TierSchedule) []string {
	keys := make([]string, 0, len(schedules))
	for k := range schedules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
