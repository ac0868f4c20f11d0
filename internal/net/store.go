package net

// SessionStore tracks live sessions by ID. Game loop only.
type SessionStore struct {
	sessions map[uint64]*Session
	order    []uint64
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uint64]*Session)}
}

func (s *SessionStore) Add(sess *Session) {
	if _, ok := s.sessions[sess.ID]; !ok {
		s.order = append(s.order, sess.ID)
	}
	s.sessions[sess.ID] = sess
}

func (s *SessionStore) Get(id uint64) *Session {
	return s.sessions[id]
}

func (s *SessionStore) Remove(id uint64) {
	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	for i, sid := range s.order {
		if sid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *SessionStore) Count() int { return len(s.sessions) }

// Each visits sessions in connection order.
func (s *SessionStore) Each(fn func(*Session)) {
	for _, id := range s.order {
		fn(s.sessions[id])
	}
}

// Bound returns the session controlling player, if any.
func (s *SessionStore) Bound(player string) *Session {
	for _, id := range s.order {
		if sess := s.sessions[id]; sess.Player == player {
			return sess
		}
	}
	return nil
}
