package thread

import (
	"fmt"
	"io"

	"github.com/xlab/treeprint"

	"eviltwitter/internal/model"
	"eviltwitter/internal/util"
)

// DefaultCollapsed is how many direct replies of the anchor show before
// "show all" is engaged.
const DefaultCollapsed = 2

// View is the per-render display state of a thread.
type View struct {
	ShowAll   bool
	Collapsed int
}

// More is the affordance shown when replies are hidden.
type More struct {
	Hidden int
	Total  int
}

func (m More) Label() string { return fmt.Sprintf("Show all %d replies", m.Total) }

// Toggle flips ShowAll for the rest of the render session.
func (v *View) Toggle() { v.ShowAll = !v.ShowAll }

func (v View) limit() int {
	if v.Collapsed > 0 {
		return v.Collapsed
	}
	return DefaultCollapsed
}

// Visible returns the children shown at depth. Only depth 0 is throttled;
// deeper levels always show everything. The returned More is nil when
// nothing is hidden.
func (v View) Visible(depth int, children []*Node) ([]*Node, *More) {
	if v.ShowAll || depth > 0 || len(children) <= v.limit() {
		return children, nil
	}
	n := v.limit()
	return children[:n], &More{Hidden: len(children) - n, Total: len(children)}
}

// Render writes t as a text tree.
func Render(w io.Writer, t Thread, v View) error {
	tree := treeprint.NewWithRoot(headline(t.Anchor))
	if len(t.Parents) > 0 {
		chain := tree.AddBranch("in reply to")
		for _, p := range t.Parents {
			chain.AddNode(headline(p))
		}
	}
	addNodes(tree, t.Replies, 0, v)
	_, err := io.WriteString(w, tree.String())
	return err
}

func addNodes(tree treeprint.Tree, nodes []*Node, depth int, v View) {
	shown, more := v.Visible(depth, nodes)
	for _, n := range shown {
		if len(n.Children) == 0 {
			tree.AddNode(headline(n.Tweet))
			continue
		}
		addNodes(tree.AddBranch(headline(n.Tweet)), n.Children, depth+1, v)
	}
	if more != nil {
		tree.AddNode("… " + more.Label())
	}
}

func headline(tw model.Tweet) string {
	m := tw.Metrics
	return fmt.Sprintf("%s %s  [♥%d ↻%d ❝%d ↩%d]",
		util.Handle(tw.Author.Username), util.Snippet(tw.Content, 80),
		m.Likes, m.Retweets, m.Quotes, m.Replies)
}
