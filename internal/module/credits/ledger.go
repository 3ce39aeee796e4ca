package credits

import "time"

// CanAfford reports whether the account can pay cost from both pools combined.
func CanAfford(a *Account, cost int64) bool {
	return cost >= 0 && a.Available() >= cost
}

// ApplyDebit takes cost from the account, monthly allowance first and then
// purchased credits. The account is left untouched on error.
func ApplyDebit(a *Account, cost int64) (Split, error) {
	if cost < 0 {
		return Split{}, ErrInvalidCost
	}
	if !CanAfford(a, cost) {
		return Split{}, ErrInsufficientCredits
	}

	monthly := min(cost, a.MonthlyAvailable())
	purchased := min(cost-monthly, a.PurchasedCredits)

	a.MonthlyUsed += monthly
	a.PurchasedCredits -= purchased

	return Split{Monthly: monthly, Purchased: purchased}, nil
}

// ApplyRollback returns a previous debit to the account. The monthly part is only
// returned while the account is in the cycle the debit was taken from; a cycle
// reset in between already restored the allowance. MonthlyUsed never drops below zero.
func ApplyRollback(a *Account, s Split, debitCycle *time.Time) {
	if a.InCycle(debitCycle) {
		a.MonthlyUsed = max(0, a.MonthlyUsed-s.Monthly)
	}
	a.PurchasedCredits += s.Purchased
}

// ApplyCycleReset starts a new billing cycle when start differs from the stored one.
// It reports whether the account changed. Purchased credits are never touched.
func ApplyCycleReset(a *Account, start time.Time) bool {
	if start.IsZero() || a.InCycle(&start) {
		return false
	}
	s := start.UTC()
	a.BillingCycleStart = &s
	a.MonthlyUsed = 0
	return true
}
