package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromInt(125000), VND)
		require.NoError(t, err)
		assert.Equal(t, VND, m.Currency())
		assert.Equal(t, int64(125000), m.Amount().IntPart())
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")
		assert.ErrorContains(t, err, "currency cannot be empty")
	})

	t.Run("rejects bad amount strings", func(t *testing.T) {
		_, err := NewMoneyFromString("ten", VND)
		assert.Error(t, err)
	})
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustMoney(19.99, USD)
	b := MustMoney(0.01, USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equals(MustMoney(20, USD)))

	assert.Equal(t, "59.97 USD", a.MultiplyByInt(3).String())

	_, err = a.Add(Zero(VND))
	assert.Error(t, err)
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "89000 VND", MustMoney(89000, VND).String())
	assert.Equal(t, "0.00 EUR", Zero(EUR).String())
}

func TestMoney_JSON(t *testing.T) {
	t.Run("round trip keeps amount and currency", func(t *testing.T) {
		in := MustMoney(89000, VND)
		data, err := json.Marshal(in)
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"89000","currency":"VND"}`, string(data))

		var out Money
		require.NoError(t, json.Unmarshal(data, &out))
		assert.True(t, in.Equals(out))
	})

	t.Run("missing currency defaults", func(t *testing.T) {
		var out Money
		require.NoError(t, json.Unmarshal([]byte(`{"amount":"10"}`), &out))
		assert.Equal(t, DefaultCurrency, out.Currency())
	})

	t.Run("invalid amount", func(t *testing.T) {
		var out Money
		assert.Error(t, json.Unmarshal([]byte(`{"amount":"x","currency":"VND"}`), &out))
	})
}
