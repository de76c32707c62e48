package pricing

import "github.com/shopspring/decimal"

// SignificantDigits is the precision kept for every computed price.
const SignificantDigits = 10

// divisionPlaces bounds intermediate quotients before the final rounding.
const divisionPlaces = 20

var (
	one      = decimal.NewFromInt(1)
	minusOne = decimal.NewFromInt(-1)
)

// Round rounds d to SignificantDigits significant digits, half to even.
// Shorter values are returned as is.
func Round(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	coef := d.Coefficient()
	digits := int32(len(coef.Abs(coef).String()))
	if digits <= SignificantDigits {
		return d
	}
	intDigits := digits + d.Exponent()
	return d.RoundBank(SignificantDigits - intDigits)
}
