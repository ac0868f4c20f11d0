package ecs

// Each2 visits entities that carry both A and B, in A's order.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) {
	for i, id := range sa.ids {
		if b, ok := sb.Get(id); ok {
			fn(id, sa.data[i], b)
		}
	}
}

// Each3 visits entities that carry A, B and C, in A's order.
func Each3[A, B, C any](sa *Store[A], sb *Store[B], sc *Store[C], fn func(EntityID, *A, *B, *C)) {
	for i, id := range sa.ids {
		b, ok := sb.Get(id)
		if !ok {
			continue
		}
		if c, ok := sc.Get(id); ok {
			fn(id, sa.data[i], b, c)
		}
	}
}
