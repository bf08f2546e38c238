package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("Plus", func(t *testing.T) {
		p := Parse("45+")
		amount, ok := p.Amount()
		require.True(t, ok)
		assert.Equal(t, 45.0, amount)
		assert.True(t, p.HasPlus())
		assert.Equal(t, Minimum, p.Kind())
		assert.Equal(t, "45+", p.String())
	})

	t.Run("POA", func(t *testing.T) {
		p := Parse("POA")
		_, ok := p.Amount()
		assert.False(t, ok)
		assert.True(t, p.IsPOA())
		assert.False(t, p.HasPlus())
		assert.Equal(t, "POA", p.String())
	})

	t.Run("Plain", func(t *testing.T) {
		p := Parse("30")
		amount, ok := p.Amount()
		require.True(t, ok)
		assert.Equal(t, 30.0, amount)
		assert.False(t, p.HasPlus())
		assert.Equal(t, Fixed, p.Kind())
	})

	t.Run("Unparseable", func(t *testing.T) {
		for _, in := range []string{"", "abc", "12.5.1+", "+", "-5", "NaN"} {
			assert.True(t, Parse(in).IsPOA(), in)
		}
	})

	t.Run("Decimal", func(t *testing.T) {
		p := Parse(" 12.50 + ")
		amount, _ := p.Amount()
		assert.Equal(t, 12.5, amount)
		assert.Equal(t, "12.5+", p.String())
	})
}

func TestPriceJSON(t *testing.T) {
	var v struct {
		A Price `json:"a"`
		B Price `json:"b"`
		C Price `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"20+","b":35,"c":"POA"}`), &v))
	assert.True(t, v.A.HasPlus())
	amount, _ := v.B.Amount()
	assert.Equal(t, 35.0, amount)
	assert.True(t, v.C.IsPOA())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"20+","b":"35","c":"POA"}`, string(out))
}

func TestPriceJSONAgreesWithParse(t *testing.T) {
	tests := []struct {
		raw  string
		kind Kind
		want string
	}{
		{`null`, OnApplication, "POA"},
		{`-5`, OnApplication, "POA"},
		{`"-5"`, OnApplication, "POA"},
		{`0`, Fixed, "0"},
		{`12.5`, Fixed, "12.5"},
		{`"12.5"`, Fixed, "12.5"},
	}
	for _, tt := range tests {
		var p Price
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &p), tt.raw)
		assert.Equal(t, tt.kind, p.Kind(), tt.raw)
		assert.Equal(t, tt.want, p.String(), tt.raw)
	}

	var v struct {
		P Price `json:"p"`
	}
	v.P = NewFixed(10)
	require.NoError(t, json.Unmarshal([]byte(`{"p":null}`), &v))
	assert.True(t, v.P.IsPOA())
}

func TestQuoteOf(t *testing.T) {
	q := QuoteOf([]Price{Parse("30"), Parse("45+"), Parse("POA")})
	assert.Equal(t, 75.0, q.Total)
	assert.True(t, q.AtLeast)
	assert.Equal(t, 1, q.NeedsQuote)
	assert.Equal(t, "75+ + POA", q.Label())

	assert.Equal(t, "0", QuoteOf(nil).Label())
	assert.Equal(t, "50", QuoteOf([]Price{NewFixed(20), NewFixed(30)}).Label())
}
