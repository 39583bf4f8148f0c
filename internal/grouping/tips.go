package grouping

import (
	"github.com/samber/lo"

	"eviltwitter/internal/model"
)

// GroupTipsByToken sums unclaimed tip totals per token mint, ignoring which
// post they came from. Output keeps first-seen mint order.
func GroupTipsByToken(tips []model.TipsByPost) []model.TipBalance {
	var out []model.TipBalance
	index := make(map[string]int)
	for _, t := range tips {
		if t.Claimed {
			continue
		}
		i, ok := index[t.TokenMint]
		if !ok {
			i = len(out)
			index[t.TokenMint] = i
			out = append(out, model.TipBalance{TokenMint: t.TokenMint})
		}
		out[i].Amount += t.TotalAmount
	}
	return out
}

// PostTips is every tip row for one post, across tokens.
type PostTips struct {
	PostID     string
	PostIDHash string
	Tips       []model.TipsByPost
}

// Unclaimed returns the rows still claimable.
func (p PostTips) Unclaimed() []model.TipsByPost {
	return lo.Filter(p.Tips, func(t model.TipsByPost, _ int) bool { return !t.Claimed })
}

// Claimable reports whether any row for the post is still unclaimed.
func (p PostTips) Claimable() bool {
	return lo.SomeBy(p.Tips, func(t model.TipsByPost) bool { return !t.Claimed })
}

// GroupTipsByPost groups tip rows by post, ignoring the token. Rows are keyed
// by PostID, falling back to PostIDHash when the id is missing.
func GroupTipsByPost(tips []model.TipsByPost) []PostTips {
	var out []PostTips
	index := make(map[string]int)
	for _, t := range tips {
		k := t.PostID
		if k == "" {
			k = "#" + t.PostIDHash
		}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, PostTips{PostID: t.PostID, PostIDHash: t.PostIDHash})
		}
		out[i].Tips = append(out[i].Tips, t)
	}
	return out
}
