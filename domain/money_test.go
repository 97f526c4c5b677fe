package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney(decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	assert.Equal(t, Money(1250), m)

	m, err = ParseMoney(decimal.RequireFromString("100"))
	require.NoError(t, err)
	assert.Equal(t, Money(10000), m)

	_, err = ParseMoney(decimal.RequireFromString("0.001"))
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = ParseMoney(decimal.RequireFromString("1e30"))
	assert.True(t, errors.Is(err, ErrInvalidAmount))
}

func TestMoneyJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Price Money `json:"price"`
	}{Price: 1999})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 19.99}`, string(out))

	var in struct {
		Price Money `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":"7.05"}`), &in))
	assert.Equal(t, Money(705), in.Price)

	err = json.Unmarshal([]byte(`{"price":"abc"}`), &in)
	assert.True(t, errors.Is(err, ErrInvalidAmount))
}
