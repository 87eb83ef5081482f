package credits

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNonPositiveAmount rejects deduct/credit calls with a zero or
// negative amount before any storage work happens.
var ErrNonPositiveAmount = errors.New("credits: amount must be positive")

// InsufficientCreditsError is returned when the authoritative re-check
// inside the deduction transaction finds the balance short. The balance
// is left untouched and no ledger row is written.
type InsufficientCreditsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %s, available %s",
		e.Required.String(), e.Available.String())
}

// IsInsufficientCredits reports whether err is an insufficient-credits failure.
func IsInsufficientCredits(err error) bool {
	var ice *InsufficientCreditsError
	return errors.As(err, &ice)
}
