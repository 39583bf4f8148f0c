// Package grouping turns flat reward, tip and economy lists into the views
// the client shows: rewards per post, tips per token and per post, and the
// filtered shop and marketplace lists.
package grouping

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"eviltwitter/internal/model"
	"eviltwitter/internal/tokens"
)

// Decimaler resolves a token mint to its decimal count.
type Decimaler interface {
	Decimals(mint string) int
}

// RewardGroup is every claimable reward for one (post hash, tweet) pair.
// Total sums whole-token amounts across the group's rewards.
type RewardGroup struct {
	PostIDHash string
	TweetID    string
	Rewards    []model.ClaimableReward
	Total      decimal.Decimal
}

// GroupRewards groups rewards by (PostIDHash, TweetID) in first-seen order.
// Amounts are base units; a nil registry or unknown mint uses 9 decimals.
func GroupRewards(rewards []model.ClaimableReward, reg Decimaler) []RewardGroup {
	type key struct{ hash, tweet string }
	index := make(map[key]int)
	var out []RewardGroup
	for _, r := range rewards {
		k := key{r.PostIDHash, r.TweetID}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, RewardGroup{PostIDHash: r.PostIDHash, TweetID: r.TweetID, Total: decimal.Zero})
		}
		out[i].Rewards = append(out[i].Rewards, r)
		out[i].Total = out[i].Total.Add(tokens.FromBaseUnits(r.Amount, decimalsFor(reg, r.TokenMint)))
	}
	return out
}

func decimalsFor(reg Decimaler, mint string) int {
	if reg == nil {
		return tokens.DefaultDecimals
	}
	return reg.Decimals(mint)
}

// TotalByMint sums a group's rewards per token mint.
func (g RewardGroup) TotalByMint(reg Decimaler) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range g.Rewards {
		prev, ok := out[r.TokenMint]
		if !ok {
			prev = decimal.Zero
		}
		out[r.TokenMint] = prev.Add(tokens.FromBaseUnits(r.Amount, decimalsFor(reg, r.TokenMint)))
	}
	return out
}

// Mints returns the distinct token mints in the group.
func (g RewardGroup) Mints() []string {
	return lo.Uniq(lo.Map(g.Rewards, func(r model.ClaimableReward, _ int) string { return r.TokenMint }))
}
