package payment

import (
	"fmt"
	"strings"
)

// Currencies the gateway charges in whole units.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// Three-decimal currencies cannot be stored in the two-decimal price columns.
var threeDecimal = map[string]bool{
	"bhd": true, "jod": true, "kwd": true, "omr": true, "tnd": true,
}

// CurrencyExponent is the number of decimal places in one minor unit of the
// currency. An empty code means the default two places.
func CurrencyExponent(currency string) int32 {
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// ValidateCurrency rejects codes whose minor unit the order tables cannot
// represent.
func ValidateCurrency(currency string) error {
	c := strings.ToLower(strings.TrimSpace(currency))
	if len(c) != 3 {
		return fmt.Errorf("currency %q is not an ISO 4217 code", currency)
	}
	if threeDecimal[c] {
		return fmt.Errorf("currency %q has three decimal places, which is not supported", currency)
	}
	return nil
}
