package comments

import "taskdeck/domain"

// Node is a comment with its direct replies in arrival order.
type Node struct {
	Comment  domain.Comment
	Children []*Node
}

// Forest holds one tree per root comment of a task.
type Forest struct {
	Roots []*Node
	// Omitted lists ids not reachable from any root, such as replies to
	// missing parents or members of a parent cycle.
	Omitted []int64

	byID map[int64]*Node
}

// BuildForest groups a flat comment list by parent id. Input order is kept
// within each sibling group. A repeated id keeps its first occurrence.
func BuildForest(flat []domain.Comment) Forest {
	nodes := make(map[int64]*Node, len(flat))
	order := make([]*Node, 0, len(flat))
	for _, c := range flat {
		if _, dup := nodes[c.ID]; dup {
			continue
		}
		n := &Node{Comment: c}
		nodes[c.ID] = n
		order = append(order, n)
	}

	var f Forest
	for _, n := range order {
		if n.Comment.IsRoot() {
			f.Roots = append(f.Roots, n)
			continue
		}
		if parent, ok := nodes[*n.Comment.ParentID]; ok {
			parent.Children = append(parent.Children, n)
		}
	}

	f.byID = make(map[int64]*Node, len(order))
	Walk(f, func(depth int, n *Node) bool {
		f.byID[n.Comment.ID] = n
		return true
	})
	for _, n := range order {
		if _, ok := f.byID[n.Comment.ID]; !ok {
			f.Omitted = append(f.Omitted, n.Comment.ID)
		}
	}
	return f
}

// Len is the number of reachable comments.
func (f Forest) Len() int { return len(f.byID) }

// Find returns the reachable comment with id.
func (f Forest) Find(id int64) (*Node, bool) {
	n, ok := f.byID[id]
	return n, ok
}

// Walk visits reachable nodes depth-first, parents before children. fn
// returning false skips the node's subtree. A node is visited at most once, so
// malformed input always terminates. Depth is unbounded.
func Walk(f Forest, fn func(depth int, n *Node) bool) {
	type frame struct {
		depth int
		n     *Node
	}
	visited := make(map[int64]struct{})
	stack := make([]frame, 0, len(f.Roots))
	for i := len(f.Roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{0, f.Roots[i]})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[top.n.Comment.ID]; seen {
			continue
		}
		visited[top.n.Comment.ID] = struct{}{}
		if !fn(top.depth, top.n) {
			continue
		}
		for i := len(top.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{top.depth + 1, top.n.Children[i]})
		}
	}
}

// Line is one row of a rendered thread.
type Line struct {
	Depth   int
	Comment *domain.Comment
	// Composer marks the inline reply box shown under the reply target.
	Composer bool
	ParentID int64
}

// Render flattens the forest for display. When target names a reachable
// comment, a composer line follows it, indented one level, before its replies.
func Render(f Forest, target *int64) []Line {
	lines := make([]Line, 0, f.Len()+1)
	Walk(f, func(depth int, n *Node) bool {
		c := n.Comment
		lines = append(lines, Line{Depth: depth, Comment: &c})
		if target != nil && *target == c.ID {
			lines = append(lines, Line{Depth: depth + 1, Composer: true, ParentID: c.ID})
		}
		return true
	})
	return lines
}
