// Package navigation assembles menu trees from flat menu lists.
package navigation

import (
	"cmp"
	"slices"
)

// Meta is the frontend route metadata of a menu item.
type Meta struct {
	Title   string   `json:"title"`
	Icon    string   `json:"icon,omitempty"`
	Hidden  bool     `json:"hidden"`
	Roles   []string `json:"roles,omitempty"`
	Affix   bool     `json:"affix,omitempty"`
	NoCache bool     `json:"noCache,omitempty"`
}

// Item is a node of a menu tree.
type Item struct {
	ID          uint     `json:"id"`
	ParentID    *uint    `json:"parentId,omitempty"`
	Name        string   `json:"name"`
	Path        string   `json:"path,omitempty"`
	Component   string   `json:"component,omitempty"`
	Redirect    string   `json:"redirect,omitempty"`
	Order       int      `json:"order"`
	Permissions []string `json:"permissions,omitempty"`
	Method      string   `json:"method,omitempty"`
	APIPath     string   `json:"apiPath,omitempty"`
	MenuType    string   `json:"menuType,omitempty"`
	Meta        Meta     `json:"meta"`
	Children    []*Item  `json:"children,omitempty"`
}

// BuildTree assembles items into a forest with siblings sorted by Order;
// items with equal Order keep their input order.
//
// keep, when not nil, filters items before the tree is assembled. An item
// whose parent was filtered out is dropped together with its subtree, it is
// never promoted to the grandparent. Items pointing at themselves, at a
// missing parent or taking part in a parent cycle are unreachable and dropped.
func BuildTree(items []Item, keep func(*Item) bool) []*Item {
	arena := make(map[uint]*Item, len(items))
	ids := make([]uint, 0, len(items))

	for i := range items {
		it := items[i]
		it.Children = nil

		if keep != nil && !keep(&it) {
			continue
		}

		if _, dup := arena[it.ID]; dup {
			continue
		}

		arena[it.ID] = &it
		ids = append(ids, it.ID)
	}

	var roots []*Item

	children := make(map[uint][]*Item, len(ids))

	for _, id := range ids {
		n := arena[id]

		switch {
		case n.ParentID == nil:
			roots = append(roots, n)
		case *n.ParentID == n.ID:
			// self reference, unreachable
		default:
			children[*n.ParentID] = append(children[*n.ParentID], n)
		}
	}

	visited := make(map[uint]bool, len(ids))

	var attach func(n *Item)
	attach = func(n *Item) {
		visited[n.ID] = true

		kids := children[n.ID]
		sortItems(kids)

		for _, kid := range kids {
			if visited[kid.ID] {
				continue
			}

			n.Children = append(n.Children, kid)
			attach(kid)
		}
	}

	sortItems(roots)

	for _, r := range roots {
		attach(r)
	}

	if roots == nil {
		return []*Item{}
	}

	return roots
}

// Flatten lists a forest depth first, parents before their children.
func Flatten(forest []*Item) []*Item {
	var out []*Item

	var walk func(nodes []*Item)
	walk = func(nodes []*Item) {
		for _, n := range nodes {
			out = append(out, n)
			walk(n.Children)
		}
	}

	walk(forest)

	return out
}

// Descendants returns the ids below id in the flat list, in no particular
// order. Cycles are tolerated.
func Descendants(items []Item, id uint) []uint {
	children := make(map[uint][]uint, len(items))

	for _, it := range items {
		if it.ParentID != nil && *it.ParentID != it.ID {
			children[*it.ParentID] = append(children[*it.ParentID], it.ID)
		}
	}

	var out []uint

	seen := map[uint]bool{id: true}
	queue := []uint{id}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, kid := range children[cur] {
			if !seen[kid] {
				seen[kid] = true
				out = append(out, kid)
				queue = append(queue, kid)
			}
		}
	}

	return out
}

func sortItems(items []*Item) {
	slices.SortStableFunc(items, func(a, b *Item) int {
		return cmp.Compare(a.Order, b.Order)
	})
}
