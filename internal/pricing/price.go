// Package pricing models the salon's price labels: a plain amount ("30"),
// a starting-from amount ("45+") or a price on application ("POA").
package pricing

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind tags how a price label is interpreted.
type Kind int

const (
	// OnApplication requires a manual quote.
	OnApplication Kind = iota
	// Fixed is an exact amount.
	Fixed
	// Minimum is "this amount or more".
	Minimum
)

// POA is the label for a price on application.
const POA = "POA"

func (k Kind) String() string {
	switch k {
	case Fixed:
		return "fixed"
	case Minimum:
		return "minimum"
	default:
		return "on_application"
	}
}

// Price is a parsed price label. The zero value is a price on application.
type Price struct {
	kind   Kind
	amount float64
}

// NewFixed returns an exact price.
func NewFixed(amount float64) Price { return Price{kind: Fixed, amount: amount} }

// NewMinimum returns a "from" price.
func NewMinimum(amount float64) Price { return Price{kind: Minimum, amount: amount} }

// Parse interprets a price label. It never fails: anything that is not a
// number, optionally suffixed with "+", is a price on application.
func Parse(raw string) Price {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, POA) {
		return Price{}
	}

	kind := Fixed
	if strings.HasSuffix(s, "+") {
		kind = Minimum
		s = strings.TrimSpace(strings.TrimSuffix(s, "+"))
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return Price{}
	}
	return Price{kind: kind, amount: amount}
}

// Kind returns the price variant.
func (p Price) Kind() Kind { return p.kind }

// Amount returns the numeric amount and whether the price is numeric at all.
func (p Price) Amount() (float64, bool) {
	if p.kind == OnApplication {
		return 0, false
	}
	return p.amount, true
}

// HasPlus reports whether the label carried a "+" suffix.
func (p Price) HasPlus() bool { return p.kind == Minimum }

// IsPOA reports whether the price needs a manual quote.
func (p Price) IsPOA() bool { return p.kind == OnApplication }

// String renders the price back in its label form.
func (p Price) String() string {
	switch p.kind {
	case Fixed:
		return formatAmount(p.amount)
	case Minimum:
		return formatAmount(p.amount) + "+"
	default:
		return POA
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MarshalText implements encoding.TextMarshaler.
func (p Price) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Price) UnmarshalText(text []byte) error {
	*p = Parse(string(text))
	return nil
}

// UnmarshalJSON accepts both string labels and bare numbers. Numbers go
// through Parse, so negatives become POA just like their string form;
// null is POA too.
func (p *Price) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*p = Price{}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*p = Parse(formatAmount(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*p = Price{}
		return nil
	}
	*p = Parse(s)
	return nil
}

// MarshalYAML writes the label form so catalogue files round-trip.
func (p Price) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// UnmarshalYAML reads "30", 30, "45+" or "POA".
func (p *Price) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*p = Parse(s)
	return nil
}

// Quote summarises the prices of a basket of services.
type Quote struct {
	Total      float64 `json:"total"`
	AtLeast    bool    `json:"at_least"`
	NeedsQuote int     `json:"needs_quote"`
}

// Label renders the quote as shown at checkout, e.g. "75+" or "40 + POA".
func (q Quote) Label() string {
	label := formatAmount(q.Total)
	if q.AtLeast {
		label += "+"
	}
	if q.NeedsQuote > 0 {
		label += " + " + POA
	}
	return label
}

// QuoteOf adds up the numeric prices and flags minimum and POA lines.
func QuoteOf(prices []Price) Quote {
	var q Quote
	for _, p := range prices {
		switch p.kind {
		case Fixed:
			q.Total += p.amount
		case Minimum:
			q.Total += p.amount
			q.AtLeast = true
		default:
			q.NeedsQuote++
		}
	}
	return q
}
