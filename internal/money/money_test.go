package money_test

import (
	"encoding/json"
	"testing"

	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]money.Cents{
		"200":    20000,
		"200.00": 20000,
		"64.8":   6480,
		"0.01":   1,
		"-5.20":  -520,
	}
	for in, want := range cases {
		got, err := money.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParse_RejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "abc", "1.005", "12,50"} {
		_, err := money.Parse(in)
		assert.Error(t, err, in)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "64.80", money.Cents(6480).String())
	assert.Equal(t, "0.05", money.Cents(5).String())
	assert.Equal(t, "-12.00", money.Cents(-1200).String())
}

func TestMulQuantity_RoundsHalfUp(t *testing.T) {
	// 9.99 × 0.5 = 4.995 → 5.00
	assert.Equal(t, money.Cents(500), money.Cents(999).MulQuantity(decimal.RequireFromString("0.5")))
	// 25.00 × 2
	assert.Equal(t, money.Cents(5000), money.Cents(2500).MulQuantity(decimal.NewFromInt(2)))
	// 12.34 × 1.25 = 15.425 → 15.43
	assert.Equal(t, money.Cents(1543), money.Cents(1234).MulQuantity(decimal.RequireFromString("1.25")))
}

func TestApplyRate(t *testing.T) {
	assert.Equal(t, money.Cents(480), money.Cents(6000).ApplyRate(decimal.RequireFromString("0.08")))
	// 0.0625 × 1.00 = 0.0625 → 0.06
	assert.Equal(t, money.Cents(6), money.Cents(100).ApplyRate(decimal.RequireFromString("0.0625")))
	// 0.08 × 0.25 = 0.02
	assert.Equal(t, money.Cents(2), money.Cents(25).ApplyRate(decimal.RequireFromString("0.08")))
}

func TestJSON(t *testing.T) {
	type payload struct {
		Amount money.Cents `json:"amount"`
	}
	out, err := json.Marshal(payload{Amount: 6480})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"64.80"}`, string(out))

	var fromString payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"70.00"}`), &fromString))
	assert.Equal(t, money.Cents(7000), fromString.Amount)

	var fromNumber payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":0.1}`), &fromNumber))
	assert.Equal(t, money.Cents(10), fromNumber.Amount)

	var bad payload
	assert.Error(t, json.Unmarshal([]byte(`{"amount":"1.001"}`), &bad))
}

func TestScan(t *testing.T) {
	var c money.Cents
	require.NoError(t, c.Scan(int64(1234)))
	assert.Equal(t, money.Cents(1234), c)
	require.NoError(t, c.Scan([]byte("99")))
	assert.Equal(t, money.Cents(99), c)

	v, err := money.Cents(42).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}
