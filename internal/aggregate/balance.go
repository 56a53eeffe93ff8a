package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"BotHerald/internal/model"
)

// MergeAcrossExchanges sums each account's coin amounts over all of its
// exchanges. Entries are sorted by coin.
func MergeAcrossExchanges(snap model.Snapshot) model.MergedBalance {
	merged := make(model.MergedBalance, len(snap.Accounts))
	for account, exchanges := range snap.Accounts {
		sums := make(map[string]decimal.Decimal)
		for _, entries := range exchanges {
			for _, e := range entries {
				sums[e.Coin] = sums[e.Coin].Add(e.Amount)
			}
		}

		coins := make([]string, 0, len(sums))
		for coin := range sums {
			coins = append(coins, coin)
		}
		sort.Strings(coins)

		list := make([]model.BalanceEntry, 0, len(coins))
		for _, coin := range coins {
			list = append(list, model.BalanceEntry{Coin: coin, Amount: sums[coin]})
		}
		merged[account] = list
	}
	return merged
}

// BalanceSeries flattens a chronological run of snapshots into one line per
// account. Each point is the account's merged total at the snapshot time.
// Snapshots are sorted by timestamp first so interleaved appends still plot
// left to right.
func BalanceSeries(snaps []model.Snapshot) model.Series {
	ordered := make([]model.Snapshot, len(snaps))
	copy(ordered, snaps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Timestamp < ordered[j].Timestamp })

	series := make(model.Series)
	for _, snap := range ordered {
		merged := MergeAcrossExchanges(snap)
		for account := range merged {
			series[account] = append(series[account], model.SeriesPoint{
				Timestamp: snap.Timestamp,
				Value:     merged.Total(account),
			})
		}
	}
	return series
}

// Accounts returns the series keys in sorted order.
func Accounts(series model.Series) []string {
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
