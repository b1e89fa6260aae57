package ledger

import "payorledger/pkg/domain"

// IDAllocator hands out provisional ids. Each kind has its own strictly
// decreasing counter starting at -1. An allocator belongs to one ledger so
// independent sessions never share counters.
type IDAllocator struct {
	payor     int64
	header    int64
	subheader int64
}

// NextPayor returns the next provisional payor id.
func (a *IDAllocator) NextPayor() domain.PayorID {
	a.payor--
	return domain.PayorID(a.payor)
}

// NextHeader returns the next provisional header id.
func (a *IDAllocator) NextHeader() domain.HeaderID {
	a.header--
	return domain.HeaderID(a.header)
}

// NextSubheader returns the next provisional subheader id.
func (a *IDAllocator) NextSubheader() domain.SubheaderID {
	a.subheader--
	return domain.SubheaderID(a.subheader)
}

// aliases remembers provisional ids that were replaced during a save, so ids
// captured before the save (by commands on the history stacks) still resolve.
type aliases[ID comparable] map[ID]ID

func (a aliases[ID]) resolve(id ID) ID {
	for i := 0; i < len(a)+1; i++ {
		next, ok := a[id]
		if !ok {
			return id
		}
		id = next
	}
	return id
}
