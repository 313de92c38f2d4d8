// Package pricing computes the base price and the discount decision
// for a validated booking. All monetary arithmetic is fixed-precision
// decimal; amounts are rounded half-up to two decimal places.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/catalog"
)

// Discount reasons.
const (
	ReasonFemaleBirthday = "Female birthday discount"
	ReasonHighValue      = "High-value order"
)

var hundred = decimal.NewFromInt(100)

// Quote is the pricing result for one booking.
type Quote struct {
	BasePrice          decimal.Decimal
	FinalPrice         decimal.Decimal
	DiscountEligible   bool
	DiscountPercentage decimal.Decimal
	DiscountReason     string
}

// Engine evaluates the discount rules. "Today" is taken in the fixed
// clinic timezone so pricing and quota agree on the calendar day.
type Engine struct {
	discountPercent    decimal.Decimal
	highValueThreshold decimal.Decimal
	location           *time.Location

	// now is overridable in tests.
	now func() time.Time
}

// NewEngine creates a pricing engine with the given knobs.
func NewEngine(discountPercent, highValueThreshold decimal.Decimal, location *time.Location) *Engine {
	return &Engine{
		discountPercent:    discountPercent,
		highValueThreshold: highValueThreshold,
		location:           location,
		now:                time.Now,
	}
}

// WithNow overrides the clock. Test hook.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Price sums the service base prices and evaluates the discount rules
// in order; the first matching rule wins:
//
//  1. female user whose date of birth matches today's month and day
//  2. base price strictly above the high-value threshold
func (e *Engine) Price(services []catalog.Service, gender, dob string) (Quote, error) {
	base := decimal.Zero
	for _, s := range services {
		base = base.Add(s.BasePrice)
	}
	base = base.Round(2)

	eligible, reason, err := e.evaluate(base, gender, dob)
	if err != nil {
		return Quote{}, err
	}

	quote := Quote{
		BasePrice:          base,
		FinalPrice:         base,
		DiscountPercentage: decimal.Zero,
	}

	if eligible {
		quote.DiscountEligible = true
		quote.DiscountPercentage = e.discountPercent
		quote.DiscountReason = reason
		multiplier := decimal.NewFromInt(1).Sub(e.discountPercent.Div(hundred))
		quote.FinalPrice = base.Mul(multiplier).Round(2)
	}

	return quote, nil
}

func (e *Engine) evaluate(base decimal.Decimal, gender, dob string) (bool, string, error) {
	if gender == catalog.GenderFemale {
		birthday, err := e.isBirthday(dob)
		if err != nil {
			return false, "", err
		}
		if birthday {
			return true, ReasonFemaleBirthday, nil
		}
	}

	if base.GreaterThan(e.highValueThreshold) {
		return true, ReasonHighValue, nil
	}

	return false, "", nil
}

func (e *Engine) isBirthday(dob string) (bool, error) {
	parsed, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return false, fmt.Errorf("invalid date of birth %q: %w", dob, err)
	}
	today := e.now().In(e.location)
	return parsed.Month() == today.Month() && parsed.Day() == today.Day(), nil
}
