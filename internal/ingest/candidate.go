// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Candidate is a proposed transaction extracted from a document.
//
// Quantity is always positive and UnitPrice is a non-negative integer amount
// of rupiah.
type Candidate struct {
	Product   string `json:"product"`
	Quantity  int    `json:"qty"`
	UnitPrice int64  `json:"price"`
}

// Total is quantity times unit price.
func (c Candidate) Total() int64 {
	return int64(c.Quantity) * c.UnitPrice
}

/*
FilterCandidates keeps the entries that satisfy the candidate invariant.

Dropped: empty product, quantity that is not a positive integer, price that
is not a non-negative integer, and any entry whose line total or running
grand total would overflow int64. Prices may arrive as numbers or as numeric
strings ("5000", "5.000", "Rp 5.000").
*/
func FilterCandidates(raw []RawCandidate) []Candidate {
	candidates := make([]Candidate, 0, len(raw))
	var grandTotal int64
	for _, entry := range raw {
		product, ok := parseProduct(entry.Product)
		if !ok {
			continue
		}
		quantity, ok := parseQuantity(entry.Qty)
		if !ok || quantity <= 0 {
			continue
		}
		price, ok := parsePrice(entry.Price)
		if !ok || price < 0 {
			continue
		}
		if price > math.MaxInt64/int64(quantity) {
			continue
		}
		candidate := Candidate{Product: product, Quantity: quantity, UnitPrice: price}
		if candidate.Total() > math.MaxInt64-grandTotal {
			continue
		}
		grandTotal += candidate.Total()
		candidates = append(candidates, candidate)
	}
	return candidates
}

func parseProduct(raw json.RawMessage) (string, bool) {
	var product string
	if err := json.Unmarshal(raw, &product); err != nil {
		return "", false
	}
	product = strings.TrimSpace(product)
	return product, product != ""
}

func parseQuantity(raw json.RawMessage) (int, bool) {
	value, ok := integralNumber(raw)
	if !ok {
		var text string
		if json.Unmarshal(raw, &text) != nil {
			return 0, false
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return 0, false
		}
		value = int64(parsed)
	}
	if value > math.MaxInt32 {
		return 0, false
	}
	return int(value), true
}

func parsePrice(raw json.RawMessage) (int64, bool) {
	if value, ok := integralNumber(raw); ok {
		return value, true
	}
	var text string
	if json.Unmarshal(raw, &text) != nil {
		return 0, false
	}
	return parseRupiah(text)
}

// integralNumber decodes a JSON number with no fractional part.
func integralNumber(raw json.RawMessage) (int64, bool) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if decoder.Decode(&value) != nil {
		return 0, false
	}
	num, ok := value.(json.Number)
	if !ok {
		return 0, false
	}
	if integer, err := num.Int64(); err == nil {
		return integer, true
	}
	float, err := num.Float64()
	if err != nil || float != math.Trunc(float) || math.Abs(float) > math.MaxInt64/2 {
		return 0, false
	}
	return int64(float), true
}

var (
	groupedThousands = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	plainDigits      = regexp.MustCompile(`^\d+$`)
	decimalPoint     = regexp.MustCompile(`^(\d+)\.(\d+)$`)
	zeros            = regexp.MustCompile(`^0+$`)
)

// parseRupiah reads an amount written the Indonesian way: "." groups
// thousands, "," starts the cents, "Rp" may prefix it.
func parseRupiah(text string) (int64, bool) {
	value := strings.TrimSpace(text)
	if len(value) >= 2 && strings.EqualFold(value[:2], "rp") {
		value = strings.TrimLeft(value[2:], ". ")
	}
	value = strings.ReplaceAll(value, " ", "")

	if whole, cents, found := strings.Cut(value, ","); found {
		if !zeros.MatchString(cents) {
			return 0, false
		}
		value = whole
	}

	switch {
	case groupedThousands.MatchString(value):
		value = strings.ReplaceAll(value, ".", "")
	case plainDigits.MatchString(value):
	case decimalPoint.MatchString(value):
		parts := decimalPoint.FindStringSubmatch(value)
		if !zeros.MatchString(parts[2]) {
			return 0, false
		}
		value = parts[1]
	default:
		return 0, false
	}

	amount, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

var rupiahPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount the way the dashboard shows it ("Rp 10.000").
func FormatRupiah(amount int64) string {
	return rupiahPrinter.Sprintf("Rp %v", number.Decimal(amount))
}
