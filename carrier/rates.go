package carrier

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// amountScale fixes every parsed amount to the same number of fractional
// digits so quotes with different precision compare correctly.
const amountScale = 6

// CheapestRate picks the lowest-priced quote. Amounts are compared as scaled
// integers, never floats, and ties keep the earliest quote so the choice
// stays bound to provider ordering. Quotes whose amount does not parse are
// skipped; a list with no usable amount is an error.
func CheapestRate(rates []core.RateQuote) (core.RateQuote, error) {
	if len(rates) == 0 {
		return core.RateQuote{}, carrierError(
			"carrier: no rates to select from",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			nil,
		)
	}

	var best core.RateQuote
	var bestAmount int64
	found := false
	for _, rate := range rates {
		amount, err := parseRateAmount(rate.Amount)
		if err != nil {
			continue
		}
		if !found || amount < bestAmount {
			best = rate
			bestAmount = amount
			found = true
		}
	}
	if !found {
		return core.RateQuote{}, carrierError(
			"carrier: no rate carried a parseable amount",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"rate_count": len(rates)},
		)
	}
	return best, nil
}

// parseRateAmount converts a decimal amount string like "9.99" into an
// integer scaled to amountScale fractional digits.
func parseRateAmount(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("carrier: rate amount is required")
	}
	if strings.HasPrefix(value, "-") {
		return 0, fmt.Errorf("carrier: rate amount %q is negative", value)
	}

	whole, fraction, _ := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}
	if len(fraction) > amountScale {
		return 0, fmt.Errorf("carrier: rate amount %q has too many fractional digits", value)
	}
	fraction += strings.Repeat("0", amountScale-len(fraction))

	var scaled int64
	for _, digit := range whole + fraction {
		if digit < '0' || digit > '9' {
			return 0, fmt.Errorf("carrier: rate amount %q is not a decimal number", value)
		}
		next := scaled*10 + int64(digit-'0')
		if next < scaled {
			return 0, fmt.Errorf("carrier: rate amount %q overflows", value)
		}
		scaled = next
	}
	return scaled, nil
}
