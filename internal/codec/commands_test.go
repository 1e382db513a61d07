package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	commands := []any{
		schema.CreateRfq{
			Correlation: "C-1",
			ExpireAt:    5_000,
			Quantity:    250,
			Side:        schema.SideSell,
			Cusip:       "912828U40",
			UserID:      7,
		},
		schema.SubmitQuote{
			Correlation:  "Q-1",
			RfqID:        3,
			DealerUserID: 9,
			Price:        99_875,
			Quantity:     250,
		},
		schema.AcceptQuote{Correlation: "A-1", RfqID: 3, QuoteID: 2, UserID: 7},
		schema.RejectQuote{Correlation: "R-1", RfqID: 3, QuoteID: 2, UserID: 7},
		schema.CancelRfq{Correlation: "X-1", RfqID: 3, UserID: 7},
		schema.ExpireRfq{RfqID: 3},
	}

	for _, command := range commands {
		commandType, payload, ok := Encode(nil, command)
		require.True(t, ok, "encode %T", command)
		require.NotEqual(t, schema.CommandUnknown, commandType)

		decoded, ok := Decode(commandType, payload)
		require.True(t, ok, "decode %T", command)
		assert.Equal(t, command, decoded)
	}
}

func TestEncodeUnknownPayload(t *testing.T) {
	commandType, _, ok := Encode(nil, struct{}{})
	assert.False(t, ok)
	assert.Equal(t, schema.CommandUnknown, commandType)
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	_, payload, ok := Encode(nil, schema.SubmitQuote{
		Correlation:  "Q-1",
		RfqID:        3,
		DealerUserID: 9,
		Price:        100,
		Quantity:     50,
	})
	require.True(t, ok)

	for cut := 0; cut < len(payload); cut++ {
		_, ok := Decode(schema.CommandSubmitQuote, payload[:cut])
		assert.Falsef(t, ok, "truncated payload of %d bytes decoded", cut)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, ok := Decode(schema.CommandUnknown, nil)
	assert.False(t, ok)
	_, ok = Decode(schema.CommandType(200), []byte{1, 2, 3})
	assert.False(t, ok)
}

func TestEncodeRejectsOversizeString(t *testing.T) {
	// A correlation over the wire bound fails encoding outright instead of
	// being silently cut down.
	oversize := strings.Repeat("x", maxStringLen+1)
	commands := []any{
		schema.CreateRfq{Correlation: oversize, Cusip: "912828U40", UserID: 7},
		schema.CreateRfq{Correlation: "C-1", Cusip: oversize, UserID: 7},
		schema.SubmitQuote{Correlation: oversize, RfqID: 3},
		schema.AcceptQuote{Correlation: oversize, RfqID: 3},
		schema.RejectQuote{Correlation: oversize, RfqID: 3},
		schema.CancelRfq{Correlation: oversize, RfqID: 3},
	}
	for _, command := range commands {
		_, _, ok := Encode(nil, command)
		assert.Falsef(t, ok, "oversize field encoded in %T", command)
	}

	// Exactly at the bound still round-trips untouched.
	limit := schema.CancelRfq{Correlation: strings.Repeat("x", maxStringLen), RfqID: 3, UserID: 7}
	commandType, payload, ok := Encode(nil, limit)
	require.True(t, ok)
	decoded, ok := Decode(commandType, payload)
	require.True(t, ok)
	assert.Equal(t, limit, decoded)
}

func TestEmptyCorrelationRoundTrip(t *testing.T) {
	command := schema.CancelRfq{RfqID: 1, UserID: 2}
	commandType, payload, ok := Encode(nil, command)
	require.True(t, ok)
	decoded, ok := Decode(commandType, payload)
	require.True(t, ok)
	assert.Equal(t, command, decoded)
}
