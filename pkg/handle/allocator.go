package handle

// Reserved index ranges.
const (
	// URLIndex is reserved for the primary URL entry
	URLIndex = 1

	// AdminIndexMin and AdminIndexMax bound the range reserved for HS_ADMIN
	AdminIndexMin = 100
	AdminIndexMax = 199

	// FirstOrdinaryIndex is where allocation starts for ordinary entries
	FirstOrdinaryIndex = 2
)

// IndexKind selects which reserved range an allocation may use.
type IndexKind int

const (
	// IndexOrdinary allocates outside every reserved range
	IndexOrdinary IndexKind = iota

	// IndexURL may use index 1
	IndexURL

	// IndexAdmin may use [100,199]
	IndexAdmin
)

// KindForType returns the allocation kind used when registering an entry of typ.
func KindForType(typ string) IndexKind {
	switch typ {
	case TypeURL:
		return IndexURL
	case TypeAdmin:
		return IndexAdmin
	default:
		return IndexOrdinary
	}
}

// AllocateIndex returns the lowest index that is neither in existing nor
// reserved for another kind.
//
// URL allocations start at 1 and admin allocations at 100; everything else
// starts at 2. The scan is bounded by max(start, max(existing ∪ reserved)) + 2,
// which always contains at least one free slot.
func AllocateIndex(existing []int, kind IndexKind) int {
	start := FirstOrdinaryIndex
	allowURL, allowAdmin := false, false
	switch kind {
	case IndexURL:
		start = URLIndex
		allowURL = true
	case IndexAdmin:
		start = AdminIndexMin
		allowAdmin = true
	}

	taken := make(map[int]struct{}, len(existing)+AdminIndexMax-AdminIndexMin+2)
	highest := start
	mark := func(i int) {
		taken[i] = struct{}{}
		if i > highest {
			highest = i
		}
	}
	for _, i := range existing {
		mark(i)
	}
	if !allowURL {
		mark(URLIndex)
	}
	if !allowAdmin {
		for i := AdminIndexMin; i <= AdminIndexMax; i++ {
			mark(i)
		}
	}

	limit := highest + 2
	for i := start; i < limit; i++ {
		if _, ok := taken[i]; !ok {
			return i
		}
	}
	return limit
}

// NextIndex allocates an index for typ against the entries already present.
func NextIndex(entries []Entry, typ string) int {
	return AllocateIndex(indicesOf(entries), KindForType(typ))
}
