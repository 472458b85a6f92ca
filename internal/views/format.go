package views

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatNumber formats v with thousands separators, guessing the number of
// decimals from its magnitude: none above 10, one above 1, two otherwise.
// Values that round to an integer at that precision get no decimals.
func FormatNumber(v float64) string {
	return FormatNumberDecimals(v, guessDecimals(v))
}

// FormatNumberDecimals formats v with exactly decimals fraction digits,
// unless v is effectively an integer.
func FormatNumberDecimals(v float64, decimals int) string {
	abs := math.Abs(v)
	factor := math.Pow(10, float64(decimals))
	if math.Round(abs) == abs || math.Round(v*factor)/factor == math.Round(v) {
		decimals = 0
	}
	factor = math.Pow(10, float64(decimals))
	rounded := math.Round(v*factor) / factor
	if rounded == 0 {
		rounded = 0 // no "-0"
	}
	return printer.Sprintf("%."+strconv.Itoa(decimals)+"f", rounded)
}

func guessDecimals(v float64) int {
	abs := math.Abs(v)
	switch {
	case abs > 10 || math.Round(abs) == abs:
		return 0
	case abs > 1:
		return 1
	}
	return 2
}

// QuantityLabel returns the singular form of a plural label when quantity
// is 1. Labels ending in "species" are already singular.
func QuantityLabel(label string, quantity float64) string {
	if quantity == 1 && !strings.HasSuffix(label, "species") && strings.HasSuffix(label, "s") {
		return label[:len(label)-1]
	}
	return label
}
