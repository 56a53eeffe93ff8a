package model

import "github.com/shopspring/decimal"

// BalanceEntry is the amount held of one coin.
type BalanceEntry struct {
	Coin   string          `json:"coin"`
	Amount decimal.Decimal `json:"amount"`
}

// Snapshot is a point-in-time capture of every account's balances,
// keyed account -> exchange -> entries. Timestamp is unix seconds.
type Snapshot struct {
	Accounts  map[string]map[string][]BalanceEntry `json:"accounts"`
	Timestamp uint64                               `json:"timestamp"`
}

// MergedBalance is a snapshot reduced to account -> entries, with amounts of
// the same coin summed across exchanges. It is derived on read and never stored.
type MergedBalance map[string][]BalanceEntry

// Total returns the sum of all entry amounts held by account.
func (m MergedBalance) Total(account string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range m[account] {
		total = total.Add(e.Amount)
	}
	return total
}
