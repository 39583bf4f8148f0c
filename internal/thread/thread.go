// Package thread assembles a tweet, its ancestor chain and its reply tree
// for display.
package thread

import (
	"sort"

	"eviltwitter/internal/model"
)

// Node is one reply with its resolved children.
type Node struct {
	Tweet    model.Tweet
	Depth    int
	Children []*Node
}

// Thread is the assembled conversation around an anchor tweet. Parents run
// from the root down to the anchor's immediate parent.
type Thread struct {
	Anchor  model.Tweet
	Parents []model.Tweet
	Replies []*Node
}

// GroupByParent buckets replies by the tweet they reply to. Replies with no
// parent id are skipped. Each bucket is ordered by reply depth, then by
// creation time; ties keep input order.
func GroupByParent(replies []model.Tweet) map[string][]model.Tweet {
	out := make(map[string][]model.Tweet)
	for _, r := range replies {
		pid := r.ParentID()
		if pid == "" {
			continue
		}
		out[pid] = append(out[pid], r)
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].ReplyDepth != list[j].ReplyDepth {
				return list[i].ReplyDepth < list[j].ReplyDepth
			}
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
	}
	return out
}

// Assemble builds the thread for anchor. Children are resolved recursively
// starting at the anchor id and recursion ends at leaves. A tweet already on
// the current path is listed but not expanded again.
func Assemble(anchor model.Tweet, parents, replies []model.Tweet) Thread {
	byParent := GroupByParent(replies)
	t := Thread{Anchor: anchor, Parents: append([]model.Tweet(nil), parents...)}
	t.Replies = build(byParent, anchor.ID, 0, map[string]bool{anchor.ID: true})
	return t
}

func build(byParent map[string][]model.Tweet, parentID string, depth int, onPath map[string]bool) []*Node {
	children := byParent[parentID]
	if len(children) == 0 {
		return nil
	}
	nodes := make([]*Node, 0, len(children))
	for _, c := range children {
		n := &Node{Tweet: c, Depth: depth}
		if !onPath[c.ID] {
			onPath[c.ID] = true
			n.Children = build(byParent, c.ID, depth+1, onPath)
			delete(onPath, c.ID)
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// Count returns the number of replies in the tree.
func (t Thread) Count() int {
	var walk func([]*Node) int
	walk = func(ns []*Node) int {
		total := len(ns)
		for _, n := range ns {
			total += walk(n.Children)
		}
		return total
	}
	return walk(t.Replies)
}

// Find returns the node for id, or nil.
func (t Thread) Find(id string) *Node {
	var walk func([]*Node) *Node
	walk = func(ns []*Node) *Node {
		for _, n := range ns {
			if n.Tweet.ID == id {
				return n
			}
			if hit := walk(n.Children); hit != nil {
				return hit
			}
		}
		return nil
	}
	return walk(t.Replies)
}
