// Package reorder plans the renumbering of dense, zero-based sibling
// indices (columns within a board, tasks within a column) under insert,
// delete and move. The plans are pure values; the store applies them as
// range updates inside the same transaction as the triggering mutation.
package reorder

// Shift is a renumbering applied to every sibling whose current index
// falls in [Low, High], excluding the moved item itself. Delta is +1 or
// -1. An empty shift has Low > High.
type Shift struct {
	Low   int
	High  int
	Delta int
}

// Empty reports whether the shift covers no indices.
func (s Shift) Empty() bool {
	return s.Low > s.High
}

// Clamp bounds index into [0, count-1]. A count of zero clamps to zero.
func Clamp(index, count int) int {
	if index >= count {
		index = count - 1
	}
	if index < 0 {
		index = 0
	}
	return index
}

// PlanAppend returns the index a newly created sibling receives: the
// current sibling count. No renumbering is needed.
func PlanAppend(count int) int {
	return count
}

// PlanDelete returns the shift closing the gap left by deleting the item
// at oldIndex: every sibling above it moves down by one.
func PlanDelete(oldIndex, count int) Shift {
	return Shift{Low: oldIndex + 1, High: count - 1, Delta: -1}
}

// PlanMove clamps newIndex into [0, count-1] and returns the shift for a
// move within one group. Moving down the list shifts the displaced range
// up; moving up shifts it down. Moving to the current index yields an
// empty shift.
func PlanMove(oldIndex, newIndex, count int) (int, Shift) {
	newIndex = Clamp(newIndex, count)

	switch {
	case newIndex < oldIndex:
		return newIndex, Shift{Low: newIndex, High: oldIndex - 1, Delta: +1}
	case newIndex > oldIndex:
		return newIndex, Shift{Low: oldIndex + 1, High: newIndex, Delta: -1}
	default:
		return newIndex, Shift{Low: 1, High: 0}
	}
}

// PlanCrossMove plans a move between two groups. The source group closes
// the gap above oldIndex; the destination opens a slot at newIndex. The
// destination shift is computed from the raw requested index and the
// destination count before insertion; only then is the final index
// clamped into [0, destCount]. This matches the order the mutation is
// applied in.
func PlanCrossMove(oldIndex, newIndex, sourceCount, destCount int) (int, Shift, Shift) {
	source := PlanDelete(oldIndex, sourceCount)
	dest := Shift{Low: newIndex, High: destCount - 1, Delta: +1}

	if newIndex > destCount {
		newIndex = destCount
	}
	if newIndex < 0 {
		newIndex = 0
	}
	return newIndex, source, dest
}
