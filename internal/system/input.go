package system

import (
	"time"

	"github.com/storechase/server/internal/core/ecs"
	coresys "github.com/storechase/server/internal/core/system"
	"github.com/storechase/server/internal/net"
	"github.com/storechase/server/internal/world"
	"go.uber.org/zap"
)

// SessionSource is the network side of the input phase.
type SessionSource interface {
	NewSessions() <-chan *net.Session
	DeadSessions() <-chan uint64
	NotifyDead(sessionID uint64)
}

// AIToggle switches AI controllers on and off.
type AIToggle interface {
	SetActive(active bool)
}

// InputSystem drains client messages from all sessions, applies them to the
// players they control and turns held keys into intents. Phase 0 (Input).
type InputSystem struct {
	server     SessionSource // nil when the gateway is disabled
	store      *net.SessionStore
	state      *world.State
	comps      *Components
	toggle     AIToggle
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(
	server SessionSource,
	store *net.SessionStore,
	maxPerTick int,
	state *world.State,
	comps *Components,
	toggle AIToggle,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		server:     server,
		store:      store,
		state:      state,
		comps:      comps,
		toggle:     toggle,
		maxPerTick: max(maxPerTick, 1),
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	if s.server != nil {
		s.drainSessions()
	}
	s.comps.Controls.Each(func(id ecs.EntityID, c *Controls) {
		s.comps.SetIntent(id, c.Scheme.Produce(c.Keys))
	})
}

func (s *InputSystem) drainSessions() {
	// Accept new sessions
	for {
		select {
		case sess := <-s.server.NewSessions():
			s.store.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	// Process dead sessions
	for {
		select {
		case id := <-s.server.DeadSessions():
			if sess := s.store.Get(id); sess != nil {
				s.release(sess)
				s.store.Remove(id)
			}
		default:
			goto doneDead
		}
	}
doneDead:

	var live []*net.Session
	s.store.Each(func(sess *net.Session) { live = append(live, sess) })

	for _, sess := range live {
		for i := 0; i < s.maxPerTick; i++ {
			select {
			case msg := <-sess.InQueue:
				s.Apply(sess, msg)
			default:
				goto doneSession
			}
		}
	doneSession:
		if sess.IsClosed() {
			sess.FlushOutput()
			s.release(sess)
			s.server.NotifyDead(sess.ID)
			s.store.Remove(sess.ID)
		}
	}
}

// Apply handles one client message on behalf of sess.
func (s *InputSystem) Apply(sess *net.Session, msg net.ClientMessage) {
	switch msg.Type {
	case net.TypeHello:
		s.bind(sess, msg.Player)
	case net.TypeKey:
		c := s.controls(sess.Player)
		if c == nil {
			s.reject(sess, "send hello with a human player first")
			return
		}
		if c.Scheme.Binds(msg.Code) {
			c.Keys.Set(msg.Code, msg.Down)
		}
	case net.TypeAI:
		if s.toggle != nil && msg.Active != nil {
			s.toggle.SetActive(*msg.Active)
		}
	}
}

func (s *InputSystem) bind(sess *net.Session, player string) {
	if s.controls(player) == nil {
		s.reject(sess, "no human player named "+player)
		return
	}
	if other := s.store.Bound(player); other != nil && other != sess {
		s.reject(sess, player+" is already controlled")
		return
	}
	if sess.Player != "" && sess.Player != player {
		s.release(sess)
	}
	sess.Player = player
	sess.SendJSON(net.WelcomeMessage{
		Type:    net.TypeWelcome,
		Session: sess.ID,
		Player:  player,
		Level:   s.state.Level().Name(),
	})
	s.log.Info("player bound", zap.Uint64("session", sess.ID), zap.String("player", player))
}

// release lets go of every key the session was holding.
func (s *InputSystem) release(sess *net.Session) {
	if c := s.controls(sess.Player); c != nil {
		c.Keys.Clear()
	}
}

func (s *InputSystem) controls(player string) *Controls {
	if player == "" {
		return nil
	}
	id, ok := s.state.Lookup(player)
	if !ok {
		return nil
	}
	c, ok := s.comps.Controls.Get(id)
	if !ok {
		return nil
	}
	return c
}

func (s *InputSystem) reject(sess *net.Session, reason string) {
	sess.SendJSON(net.ErrorMessage{Type: net.TypeError, Message: reason})
}
