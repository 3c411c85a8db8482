package arena

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// Population is the arena of a run. all never changes after construction,
// so every combatant keeps a stable slot for snapshots. The live view is
// published copy-on-write: readers grab the current slice without locking
// and never see it change under them, and the reaper swaps in a new slice
// when it removes someone.
type Population struct {
	all  []*Combatant
	live atomic.Pointer[[]*Combatant]
	// mu serializes writers of live.
	mu sync.Mutex
}

// NewPopulation builds an arena whose live view starts with every member.
func NewPopulation(members []*Combatant) *Population {
	all := make([]*Combatant, len(members))
	copy(all, members)

	live := make([]*Combatant, len(members))
	copy(live, members)

	p := &Population{all: all}
	p.live.Store(&live)
	return p
}

// Live returns the current live view. The slice is shared and must not be
// modified.
func (p *Population) Live() []*Combatant {
	return *p.live.Load()
}

// All returns every combatant of the run, dead ones included, in arena order.
func (p *Population) All() []*Combatant {
	return p.all
}

// Len returns the size of the live view.
func (p *Population) Len() int {
	return len(p.Live())
}

// Remove drops c from the live view. It reports whether c was live.
func (p *Population) Remove(c *Combatant) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.Live()
	for i, member := range current {
		if member != c {
			continue
		}
		next := make([]*Combatant, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		p.live.Store(&next)
		return true
	}
	return false
}

// PickOpponent returns a uniformly random live member other than self.
func (p *Population) PickOpponent(self *Combatant) (*Combatant, error) {
	live := p.Live()
	if len(live) <= 1 {
		return nil, ErrNoOpponent
	}
	for {
		other := live[rand.IntN(len(live))]
		if other != self {
			return other, nil
		}
	}
}
