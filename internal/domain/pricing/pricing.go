package pricing

import (
	"adspace/internal/domain/shared/daterange"
	"adspace/internal/domain/shared/money"
)

// billingPeriodDays is the span billed as one month. Partial periods are
// billed as a full month.
const billingPeriodDays = 30

// Months returns the number of billable months for the range, rounding up.
func Months(dr daterange.DateRange) int64 {
	days := int64(dr.Days())
	if days <= 0 {
		return 0
	}
	return (days + billingPeriodDays - 1) / billingPeriodDays
}

// Quote computes the frozen total for a booking: monthlyRate x ceil(days/30).
func Quote(monthlyRate money.Money, dr daterange.DateRange) money.Money {
	return monthlyRate.Multiply(Months(dr))
}
