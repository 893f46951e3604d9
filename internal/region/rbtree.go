package region

// A from-scratch intrusive red-black tree of disjoint, non-touching
// [start, end) intervals, ordered by start. Because intervals are always
// kept disjoint by the Map operations built on top, a plain BST descent
// comparing key against [node.start, node.end) locates the containing
// interval directly — no general interval-tree augmentation is needed.
//
// This follows the CLRS red-black tree shape (sentinel nil node, standard
// rotations and insert/delete fixup) rather than any third-party tree
// package: no library in the pack implements this half-open
// interval-coalescing shape, and the node layout (start/end plus
// left/right/parent/color) mirrors the teacher's style of building small
// data structures directly rather than pulling in a generic container.

type color bool

const (
	red   color = true
	black color = false
)

type node struct {
	start, end           uint32
	color                color
	left, right, parent *node
}

// nilNode is the shared black sentinel every leaf and the tree's initial
// root point to, exactly as in CLRS.
var nilNode = &node{color: black}

func init() {
	nilNode.left = nilNode
	nilNode.right = nilNode
	nilNode.parent = nilNode
}

type tree struct {
	root *node
}

func newTree() *tree {
	return &tree{root: nilNode}
}

func (t *tree) leftRotate(x *node) {
	y := x.right
	x.right = y.left
	if y.left != nilNode {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == nilNode {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *tree) rightRotate(x *node) {
	y := x.left
	x.left = y.right
	if y.right != nilNode {
		y.right.parent = x
	}
	y.parent = x.parent
	if x.parent == nilNode {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

// insert places a new disjoint [start,end) interval into the tree (caller
// guarantees it doesn't overlap any existing interval) and returns its node.
func (t *tree) insert(start, end uint32) *node {
	z := &node{start: start, end: end, color: red, left: nilNode, right: nilNode, parent: nilNode}

	var y *node = nilNode
	x := t.root
	for x != nilNode {
		y = x
		if z.start < x.start {
			x = x.left
		} else {
			x = x.right
		}
	}
	z.parent = y
	if y == nilNode {
		t.root = z
	} else if z.start < y.start {
		y.left = z
	} else {
		y.right = z
	}

	t.insertFixup(z)
	return z
}

func (t *tree) insertFixup(z *node) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *tree) transplant(u, v *node) {
	if u.parent == nilNode {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func minimum(x *node) *node {
	for x.left != nilNode {
		x = x.left
	}
	return x
}

func maximum(x *node) *node {
	for x.right != nilNode {
		x = x.right
	}
	return x
}

// predecessor returns the in-order predecessor of x, or nilNode if none.
func predecessor(x *node) *node {
	if x.left != nilNode {
		return maximum(x.left)
	}
	y := x.parent
	for y != nilNode && x == y.left {
		x = y
		y = y.parent
	}
	return y
}

// successor returns the in-order successor of x, or nilNode if none.
func successor(x *node) *node {
	if x.right != nilNode {
		return minimum(x.right)
	}
	y := x.parent
	for y != nilNode && x == y.right {
		x = y
		y = y.parent
	}
	return y
}

func (t *tree) delete(z *node) {
	y := z
	yOriginalColor := y.color
	var x *node

	if z.left == nilNode {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == nilNode {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = minimum(z.right)
		yOriginalColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOriginalColor == black {
		t.deleteFixup(x)
	}
}

func (t *tree) deleteFixup(x *node) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.leftRotate(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}

// findContaining returns the node whose [start,end) contains key, or
// nilNode if no interval contains it.
func (t *tree) findContaining(key uint32) *node {
	x := t.root
	for x != nilNode {
		if key < x.start {
			x = x.left
		} else if key >= x.end {
			x = x.right
		} else {
			return x
		}
	}
	return nilNode
}
