package metadata

// Split carves the first size bytes of block's payload out for the caller and turns the rest
// into a new free block that directly follows it. Nothing happens unless the leftover space
// is larger than HeaderSize+MinPayload; in that case the whole block is kept and the caller
// lives with the internal fragmentation. Returns true if a new block was created.
func (c *Chain) Split(block BlockOffset, size int) bool {
	h := c.header(block)
	leftover := h.size() - size
	if leftover <= HeaderSize+MinPayload {
		return false
	}

	// The residual header starts right after the shrunk payload
	residual := BlockOffset(int(PayloadOf(block)) + size)
	c.header(residual).init(leftover-HeaderSize, h.next(), true)

	h.setSize(size)
	h.setNext(residual)
	return true
}
