package ecs

// World owns the handle pool, the registered component stores and a
// deferred destruction queue. Despawns requested mid-tick take effect when
// the cleanup phase flushes the queue, so no system sees a half-removed
// entity.
type World struct {
	pool    *Pool
	stores  []Removable
	pending []EntityID
}

func NewWorld() *World {
	return &World{
		pool:    NewPool(),
		stores:  make([]Removable, 0, 8),
		pending: make([]EntityID, 0, 8),
	}
}

// Register adds a store to the set cleared on destruction.
func (w *World) Register(store Removable) {
	w.stores = append(w.stores, store)
}

func (w *World) CreateEntity() EntityID { return w.pool.Create() }

func (w *World) Alive(id EntityID) bool { return w.pool.Alive(id) }

// MarkForDestruction queues id for the next Flush.
func (w *World) MarkForDestruction(id EntityID) {
	w.pending = append(w.pending, id)
}

// Pending reports how many entities wait for destruction.
func (w *World) Pending() int { return len(w.pending) }

// Flush destroys every queued entity and strips its components. It returns
// the handles that were actually alive.
func (w *World) Flush() []EntityID {
	if len(w.pending) == 0 {
		return nil
	}
	destroyed := make([]EntityID, 0, len(w.pending))
	for _, id := range w.pending {
		if !w.pool.Alive(id) {
			continue
		}
		for _, s := range w.stores {
			s.Remove(id)
		}
		w.pool.Destroy(id)
		destroyed = append(destroyed, id)
	}
	w.pending = w.pending[:0]
	return destroyed
}
