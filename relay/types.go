package relay

type BlocksRange struct {
	From uint
	To   uint
}

func (r BlocksRange) Size() uint {
	return r.To - r.From + 1
}

// Shrink cuts the range span down by the given factor, keeping the lower
// bound. The result always covers at least one block.
func (r BlocksRange) Shrink(factor uint) BlocksRange {
	span := r.Size() / factor
	if span == 0 {
		span = 1
	}
	return BlocksRange{From: r.From, To: r.From + span - 1}
}

// ComputeRange derives the next scan range from the last processed block and
// the current chain head, bounded by maxRangeSize blocks. The second return
// value is false when the head brings nothing new to scan.
func ComputeRange(lastProcessed, head, maxRangeSize uint) (BlocksRange, bool) {
	if lastProcessed+1 > head {
		return BlocksRange{}, false
	}
	to := lastProcessed + maxRangeSize
	if to > head {
		to = head
	}
	return BlocksRange{From: lastProcessed + 1, To: to}, true
}
