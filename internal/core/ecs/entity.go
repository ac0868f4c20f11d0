package ecs

import "fmt"

// EntityID is a generational handle: the low 32 bits index a slot, the high
// 32 bits carry the slot's generation at allocation time. Destroying an
// entity bumps the generation, so handles held by other characters go stale
// instead of silently pointing at whatever reuses the slot.
type EntityID uint64

func NewEntityID(index, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }

// IsZero reports the zero handle. Slot 0 of generation 0 is never handed
// out, so the zero value always means "no entity".
func (id EntityID) IsZero() bool { return id == 0 }

func (id EntityID) String() string {
	return fmt.Sprintf("%d#%d", id.Index(), id.Generation())
}

// Pool allocates handles and recycles freed slots.
type Pool struct {
	generations []uint32
	free        []uint32
}

func NewPool() *Pool {
	// slot 0 is reserved so the zero EntityID stays invalid
	return &Pool{
		generations: make([]uint32, 1, 64),
		free:        make([]uint32, 0, 16),
	}
}

func (p *Pool) Create() EntityID {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return NewEntityID(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 0)
	return NewEntityID(idx, 0)
}

func (p *Pool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || int(idx) >= len(p.generations) {
		return false
	}
	return p.generations[idx] == id.Generation()
}

// Destroy invalidates id. Destroying a stale handle is a no-op.
func (p *Pool) Destroy(id EntityID) {
	if !p.Alive(id) {
		return
	}
	idx := id.Index()
	p.generations[idx]++
	p.free = append(p.free, idx)
}
