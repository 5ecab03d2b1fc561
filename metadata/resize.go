package metadata

// ShrinkInPlace reduces a taken block to size payload bytes, handing the tail of the payload
// back to the chain as a free block when it is large enough to be worth a header. A freed
// tail that lands next to a free successor is merged with it.
func (c *Chain) ShrinkInPlace(block BlockOffset, size int) (split bool, merged bool) {
	if !c.Split(block, size) {
		return false, false
	}

	residual := c.Next(block)
	if next := c.Next(residual); next != NoBlock && c.IsFree(next) {
		c.absorbNext(residual)
		merged = true
	}

	return true, merged
}

// GrowInPlace extends a taken block to at least size payload bytes by absorbing its successor,
// if the successor is free and large enough. Any space beyond size is split back off.
// Returns false, leaving the chain unchanged, when that is not possible.
func (c *Chain) GrowInPlace(block BlockOffset, size int) (grown bool, split bool) {
	next := c.Next(block)
	if next == NoBlock || !c.IsFree(next) {
		return false, false
	}
	if c.Size(block)+HeaderSize+c.Size(next) < size {
		return false, false
	}

	c.absorbNext(block)
	return true, c.Split(block, size)
}
