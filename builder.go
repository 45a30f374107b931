package cascade

import (
	"github.com/google/uuid"

	"github.com/petrijr/cascade/pkg/api"
)

// Cursor is a navigable view over a graph under construction:
//
//	root := cascade.New().
//	    Each(parse).
//	    Each(enrich).
//	    Up().
//	    Each(audit, cascade.WithWhen(isSuspicious)).
//	    Graph()
//
// Builder operations return a cursor pointing at the newly added child,
// so chained calls descend the tree; Up, Root, Down, Leftmost and Next
// move the insertion point. The cursor exists only at build time and is
// not part of the running graph.
type Cursor struct {
	root *api.Node
	path []*api.Node // ancestors of node, root first
	node *api.Node   // nil for an empty graph
}

// New creates a cursor over an empty graph. The first Each (or Multimap)
// establishes the root.
func New() *Cursor {
	return &Cursor{}
}

// Node returns the node the cursor points at, or nil for an empty graph.
func (c *Cursor) Node() *api.Node { return c.node }

// Graph returns the root of the graph under construction.
func (c *Cursor) Graph() *api.Node { return c.root }

// Root returns a cursor at the root.
func (c *Cursor) Root() *Cursor {
	if c.root == nil {
		return c
	}
	return &Cursor{root: c.root, node: c.root}
}

// Up returns a cursor at the parent, or the cursor itself at the root.
func (c *Cursor) Up() *Cursor {
	if len(c.path) == 0 {
		return c
	}
	return &Cursor{
		root: c.root,
		path: c.path[:len(c.path)-1],
		node: c.path[len(c.path)-1],
	}
}

// Down returns a cursor at the leftmost child, or nil if the current
// node has none.
func (c *Cursor) Down() *Cursor {
	if c.node == nil || len(c.node.Children) == 0 {
		return nil
	}
	return &Cursor{
		root: c.root,
		path: append(append([]*api.Node(nil), c.path...), c.node),
		node: c.node.Children[0],
	}
}

// Leftmost returns a cursor at the leftmost sibling of the current node.
func (c *Cursor) Leftmost() *Cursor {
	if len(c.path) == 0 {
		return c
	}
	parent := c.path[len(c.path)-1]
	return &Cursor{root: c.root, path: c.path, node: parent.Children[0]}
}

// Next returns a cursor at the next sibling, or nil if the current node
// is the rightmost child.
func (c *Cursor) Next() *Cursor {
	if len(c.path) == 0 {
		return nil
	}
	parent := c.path[len(c.path)-1]
	for i, sib := range parent.Children {
		if sib == c.node && i+1 < len(parent.Children) {
			return &Cursor{root: c.root, path: c.path, node: parent.Children[i+1]}
		}
	}
	return nil
}

// Edit applies fn to the current node and returns the cursor.
func (c *Cursor) Edit(fn func(*api.Node)) *Cursor {
	if c.node == nil {
		panic("cascade: Edit on an empty graph")
	}
	fn(c.node)
	return c
}

// Each appends a child receiving the current node's output, and returns
// a cursor at that child. On an empty graph it establishes the root.
func (c *Cursor) Each(f api.Transform, opts ...api.NodeOption) *Cursor {
	return c.insert(api.NewNode(f, opts...))
}

// Multimap appends a child whose transform returns a []any, each element
// of which is forwarded to the child's children individually.
func (c *Cursor) Multimap(f api.Transform, opts ...api.NodeOption) *Cursor {
	opts = append([]api.NodeOption{api.WithMultimap()}, opts...)
	return c.insert(api.NewNode(f, opts...))
}

// Subgraph builds a sub-tree from an empty graph and appends it under
// the current node, returning a cursor at the sub-tree's root.
func (c *Cursor) Subgraph(build func(*Cursor)) *Cursor {
	sub := New()
	build(sub)
	if sub.Graph() == nil {
		panic("cascade: Subgraph built an empty graph")
	}
	return c.insert(sub.Graph())
}

// AppendChild inserts child under the first node matching id anywhere in
// the graph and returns a cursor at the inserted child. It panics when
// no node matches; a missing parent is a build-time bug.
func (c *Cursor) AppendChild(id string, child *api.Node) *Cursor {
	if c.root == nil {
		panic("cascade: AppendChild on an empty graph")
	}
	path := findPath(c.root, id)
	if path == nil {
		panic("cascade: AppendChild: no node with id " + id)
	}
	parent := path[len(path)-1]
	c.ensureUniqueID(child)
	parent.Children = append(parent.Children, child)
	return &Cursor{root: c.root, path: path, node: child}
}

func (c *Cursor) insert(n *api.Node) *Cursor {
	if n.F == nil && n.Async == nil {
		panic("cascade: node has nil transform")
	}

	if c.node == nil {
		c.root = n
		c.node = n
		return &Cursor{root: n, node: n}
	}

	c.ensureUniqueID(n)
	c.node.Children = append(c.node.Children, n)
	return &Cursor{
		root: c.root,
		path: append(append([]*api.Node(nil), c.path...), c.node),
		node: n,
	}
}

// ensureUniqueID disambiguates ids within the graph: adding the same
// transform twice would otherwise collide on the content hash.
func (c *Cursor) ensureUniqueID(n *api.Node) {
	if c.root != nil && api.FindNode(c.root, n.ID) != nil {
		n.ID = n.ID + "-" + uuid.NewString()[:8]
	}

	// Subgraphs may carry their own colliding ids; fix those too.
	for _, child := range n.Children {
		c.ensureUniqueID(child)
	}
}

// findPath returns the ancestor chain from root to the node matching id,
// inclusive, or nil when no node matches.
func findPath(root *api.Node, id string) []*api.Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return []*api.Node{root}
	}
	for _, child := range root.Children {
		if p := findPath(child, id); p != nil {
			return append([]*api.Node{root}, p...)
		}
	}
	return nil
}
