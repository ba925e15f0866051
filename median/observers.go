package median

import (
	"fmt"
	"math/bits"
)

// MaxObservers is the number of oracle slots addressable by an ObserverMask.
const MaxObservers = 31

// ObserverMask is a fixed size bitset over oracle slot indices. Bit i is set
// when the oracle in slot i contributed an observation.
type ObserverMask uint32

// NewObserverMask builds a mask from slot indices. Repeated or out of range
// slots are rejected.
func NewObserverMask(slots ...int) (ObserverMask, error) {
	var m ObserverMask
	for _, s := range slots {
		if s < 0 || s >= MaxObservers {
			return 0, fmt.Errorf("observer slot %d out of range [0, %d)", s, MaxObservers)
		}
		if m.Has(s) {
			return 0, fmt.Errorf("observer slot %d listed more than once", s)
		}
		m |= 1 << uint(s)
	}
	return m, nil
}

func (m ObserverMask) Has(slot int) bool {
	if slot < 0 || slot >= 32 {
		return false
	}
	return m&(1<<uint(slot)) != 0
}

// Count is the population count of the mask.
func (m ObserverMask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// HighestSlot returns the largest set slot index, or -1 for an empty mask.
func (m ObserverMask) HighestSlot() int {
	return bits.Len32(uint32(m)) - 1
}

// Slots lists the set slot indices in ascending order.
func (m ObserverMask) Slots() []int {
	slots := make([]int, 0, m.Count())
	for v := uint32(m); v != 0; v &= v - 1 {
		slots = append(slots, bits.TrailingZeros32(v))
	}
	return slots
}

func (m ObserverMask) String() string {
	return fmt.Sprintf("%031b", uint32(m))
}
