package metadata

// Coalesce merges a block that was just marked free with its free neighbors. The successor
// is merged first so that, when the predecessor is also free, it absorbs the already grown
// block. Absorbed headers become payload, so the chain's total size is unchanged.
//
// Blocks carry no backward link: the predecessor is found by walking the chain from the
// head, which makes every call O(n).
//
// Returns the block that now holds the freed memory and whether any merge happened.
func (c *Chain) Coalesce(block BlockOffset) (BlockOffset, bool) {
	merged := false

	if next := c.Next(block); next != NoBlock && c.IsFree(next) {
		c.absorbNext(block)
		merged = true
	}

	prev := c.predecessor(block)
	if prev != NoBlock && c.IsFree(prev) {
		c.absorbNext(prev)
		block = prev
		merged = true
	}

	return block, merged
}

func (c *Chain) predecessor(block BlockOffset) BlockOffset {
	if block == c.head {
		return NoBlock
	}

	for prev := c.head; prev != NoBlock; {
		next := c.Next(prev)
		if next == block {
			return prev
		}
		prev = next
	}

	return NoBlock
}

// absorbNext removes block's successor from the chain, adding its header and payload to
// block's payload
func (c *Chain) absorbNext(block BlockOffset) {
	h := c.header(block)
	next := h.next()
	nh := c.header(next)

	h.setSize(h.size() + HeaderSize + nh.size())
	h.setNext(nh.next())
	c.blockRemoved(next, block)
}
