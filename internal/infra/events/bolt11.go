package events

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrNoInvoiceAmount = errors.New("invoice has no amount")
	ErrAmountOverflow  = errors.New("invoice amount out of range")
)

// multipliers converts a bolt11 amount unit into millisatoshis per unit of BTC fraction.
// 1 BTC = 1e11 msat.
var multipliers = map[byte]int64{
	'm': 100_000_000, // milli-BTC
	'u': 100_000,     // micro-BTC
	'n': 100,         // nano-BTC
}

// Bolt11AmountMsats reads the amount from the human-readable part of a bolt11 invoice.
func Bolt11AmountMsats(invoice string) (int64, error) {
	inv := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(invoice)), "lightning:")
	sep := strings.LastIndexByte(inv, '1')
	if !strings.HasPrefix(inv, "ln") || sep < 4 {
		return 0, errors.Newf("invalid bolt11 invoice %q", invoice)
	}
	hrp := inv[2:sep]

	// Strip the network prefix (bc, tb, bcrt, tbs, ...): the amount starts at the first digit.
	start := strings.IndexAny(hrp, "0123456789")
	if start < 0 {
		return 0, ErrNoInvoiceAmount
	}
	amount := hrp[start:]

	unit := amount[len(amount)-1]
	digits := amount
	if unit < '0' || unit > '9' {
		digits = amount[:len(amount)-1]
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.Newf("invalid bolt11 amount %q", amount)
	}

	switch {
	case unit >= '0' && unit <= '9':
		return scale(n, 100_000_000_000, amount)
	case unit == 'p':
		// pico-BTC: 10 pBTC = 1 msat
		if n%10 != 0 {
			return 0, errors.Newf("sub-millisatoshi amount %q", amount)
		}
		return n / 10, nil
	default:
		m, ok := multipliers[unit]
		if !ok {
			return 0, errors.Newf("unknown bolt11 multiplier %q", string(unit))
		}
		return scale(n, m, amount)
	}
}

func scale(n, mult int64, amount string) (int64, error) {
	if n > math.MaxInt64/mult {
		return 0, errors.Wrapf(ErrAmountOverflow, "%q", amount)
	}
	return n * mult, nil
}
