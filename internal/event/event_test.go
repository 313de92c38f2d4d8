package event

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeWireFormat(t *testing.T) {
	e := Priced("tx-1", &Booking{
		UserName:           "Asha",
		UserGender:         "female",
		UserDOB:            "1994-03-15",
		ServiceIDs:         []int{1, 4},
		BasePrice:          decimal.RequireFromString("750.00"),
		FinalPrice:         decimal.RequireFromString("660.00"),
		DiscountEligible:   true,
		DiscountPercentage: decimal.RequireFromString("12"),
		DiscountReason:     "Female birthday discount",
	})

	data, err := e.Marshal()
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "booking.priced", raw["event_type"])
	assert.Equal(t, "tx-1", raw["transaction_id"])
	assert.NotEmpty(t, raw["timestamp"])

	// Monetary amounts travel as strings, never floats.
	payload := raw["data"].(map[string]interface{})
	assert.Equal(t, "750.00", payload["base_price"])
	assert.Equal(t, "660.00", payload["final_price"])
	assert.Equal(t, true, payload["discount_eligible"])
}

func TestEnvelopeRoundTrip(t *testing.T) {
	e := QuotaFailed("tx-2", "Daily discount quota reached. Please try again tomorrow.")

	data, err := e.Marshal()
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, TypeQuotaFailed, decoded.EventType)
	assert.Equal(t, "tx-2", decoded.TransactionID)
	assert.Equal(t, e.Error, decoded.Error)
	assert.True(t, decoded.Timestamp.Equal(e.Timestamp))
}

func TestUnmarshalRejectsIncompleteEvents(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{{`},
		{"missing event_type", `{"transaction_id":"tx-1"}`},
		{"missing transaction_id", `{"event_type":"booking.initiated"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(TypeCompleted))
	assert.True(t, Terminal(TypeFailed))
	assert.True(t, Terminal(TypeQuotaReleased))

	assert.False(t, Terminal(TypeInitiated))
	assert.False(t, Terminal(TypeQuotaAcquired))
	assert.False(t, Terminal(TypeCompensate))
}

func TestKey(t *testing.T) {
	e := New(TypeInitiated, "tx-3")
	assert.Equal(t, "tx-3", e.Key())
}
