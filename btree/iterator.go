package btree

import "github.com/mdedb/mde/value"

// Pair is a single key/value yielded by a scan.
type Pair struct {
	Key   value.Value
	Value []byte
}

// IterAll walks from the leftmost leaf along the sibling chain, yielding
// every (key, value) pair in strictly increasing key order. The
// returned slice is a point-in-time snapshot taken under the tree's
// read lock.
func (t *Tree) IterAll() ([]Pair, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	leftmost := t.leftmostLeaf()
	var out []Pair
	for n := leftmost; n != nil; n = n.next {
		for i, k := range n.keys {
			out = append(out, Pair{Key: k, Value: n.values[i]})
		}
	}
	return out, nil
}

func (t *Tree) leftmostLeaf() *node {
	n := t.root
	for !n.leaf {
		n = n.children[0]
	}
	return n
}

// Range yields keys in [lo, hi] inclusive on both ends, in increasing
// order. Either bound may be omitted by passing
// hasLo/hasHi as false, in which case the scan starts at the leftmost
// leaf and/or runs to the rightmost leaf respectively.
func (t *Tree) Range(lo value.Value, hasLo bool, hi value.Value, hasHi bool) ([]Pair, error) {
	if hasLo {
		if err := t.checkKey(lo); err != nil {
			return nil, err
		}
	}
	if hasHi {
		if err := t.checkKey(hi); err != nil {
			return nil, err
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var start *node
	if hasLo {
		n, err := t.descendToLeaf(lo)
		if err != nil {
			return nil, err
		}
		start = n
	} else {
		start = t.leftmostLeaf()
	}

	var out []Pair
	for n := start; n != nil; n = n.next {
		for i, k := range n.keys {
			if hasLo {
				c, err := t.cmp(k, lo)
				if err != nil {
					return nil, err
				}
				if c < 0 {
					continue
				}
			}
			if hasHi {
				c, err := t.cmp(k, hi)
				if err != nil {
					return nil, err
				}
				if c > 0 {
					return out, nil
				}
			}
			out = append(out, Pair{Key: k, Value: n.values[i]})
		}
	}
	return out, nil
}
