// Package catalog provides the read-only clinic service catalog shared
// by the validator, the pricer, and the gateway.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gender values a service can be restricted to.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderBoth   = "both"
)

// Service is one bookable clinic service.
type Service struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Gender    string          `json:"gender"`
	BasePrice decimal.Decimal `json:"base_price"`
}

// AvailableFor reports whether the service can be booked by a user of
// the given gender.
func (s Service) AvailableFor(gender string) bool {
	return s.Gender == gender || s.Gender == GenderBoth
}

// Catalog resolves clinic services. Implementations are read-only.
type Catalog interface {
	// ByIDs resolves the given ids, preserving request order. Unknown
	// ids are silently dropped from the result.
	ByIDs(ctx context.Context, ids []int) ([]Service, error)
	// List returns services available for the given gender, or all
	// services when gender is empty.
	List(ctx context.Context, gender string) ([]Service, error)
}

func mustPrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// defaultServices is the clinic's service list, used by the static
// catalog and as the migration seed.
func defaultServices() []Service {
	return []Service{
		{ID: 1, Name: "General Consultation", Gender: GenderBoth, BasePrice: mustPrice("300.00")},
		{ID: 2, Name: "Gynecology", Gender: GenderFemale, BasePrice: mustPrice("500.00")},
		{ID: 3, Name: "Ultrasound", Gender: GenderFemale, BasePrice: mustPrice("800.00")},
		{ID: 4, Name: "Blood Test", Gender: GenderBoth, BasePrice: mustPrice("450.00")},
		{ID: 5, Name: "Cardiology", Gender: GenderBoth, BasePrice: mustPrice("600.00")},
		{ID: 6, Name: "Urology", Gender: GenderMale, BasePrice: mustPrice("550.00")},
		{ID: 7, Name: "Prostate Screening", Gender: GenderMale, BasePrice: mustPrice("700.00")},
		{ID: 8, Name: "Dermatology", Gender: GenderBoth, BasePrice: mustPrice("400.00")},
	}
}

// StaticCatalog serves the built-in service list from memory.
type StaticCatalog struct {
	services []Service
	byID     map[int]Service
}

// Static returns the built-in clinic catalog.
func Static() *StaticCatalog {
	return NewStatic(defaultServices())
}

// NewStatic creates a static catalog over the given services.
func NewStatic(services []Service) *StaticCatalog {
	byID := make(map[int]Service, len(services))
	for _, s := range services {
		byID[s.ID] = s
	}
	return &StaticCatalog{services: services, byID: byID}
}

// ByIDs resolves ids against the in-memory list.
func (c *StaticCatalog) ByIDs(_ context.Context, ids []int) ([]Service, error) {
	result := make([]Service, 0, len(ids))
	for _, id := range ids {
		if s, ok := c.byID[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

// List filters the in-memory list by gender.
func (c *StaticCatalog) List(_ context.Context, gender string) ([]Service, error) {
	if gender == "" {
		out := make([]Service, len(c.services))
		copy(out, c.services)
		return out, nil
	}
	var out []Service
	for _, s := range c.services {
		if s.AvailableFor(gender) {
			out = append(out, s)
		}
	}
	return out, nil
}

var _ Catalog = (*StaticCatalog)(nil)
