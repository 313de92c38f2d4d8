// Package quota arbitrates the clinic's daily discount slots. At most
// MaxDaily allocations may be active per calendar day in the clinic
// timezone; acquire and release are atomic per date.
package quota

import (
	"time"
)

// ErrQuotaExhaustedMessage is the client-facing message when the day's
// discount slots are gone.
const ErrQuotaExhaustedMessage = "Daily discount quota reached. Please try again tomorrow."

// DateFormat is the civil date key used for quota counters.
const DateFormat = "2006-01-02"

// Today returns the current civil date in the given location.
func Today(loc *time.Location) string {
	return time.Now().In(loc).Format(DateFormat)
}
