package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SessionOptions sizes a session's queues and deadlines.
type SessionOptions struct {
	InQueueSize  int
	OutQueueSize int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn *websocket.Conn
	opts SessionOptions

	InQueue  chan ClientMessage // game loop reads messages from here
	OutQueue chan []byte        // writer goroutine reads from here

	IP     string
	Player string // bound by hello; game loop only

	outBuf [][]byte // buffered frames, flushed by the output phase (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onClose   func(uint64)

	log *zap.Logger
}

func NewSession(conn *websocket.Conn, id uint64, opts SessionOptions, onClose func(uint64), log *zap.Logger) *Session {
	return &Session{
		ID:       id,
		conn:     conn,
		opts:     opts,
		InQueue:  make(chan ClientMessage, max(opts.InQueueSize, 1)),
		OutQueue: make(chan []byte, max(opts.OutQueueSize, 1)),
		IP:       conn.RemoteAddr().String(),
		closeCh:  make(chan struct{}),
		onClose:  onClose,
		log:      log.With(zap.Uint64("session", id)),
	}
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a frame for sending. Nothing reaches the socket until
// FlushOutput is called in the output phase.
// Called only from the game loop goroutine; no lock needed on outBuf.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// SendJSON encodes v and buffers it.
func (s *Session) SendJSON(v any) {
	b, err := Encode(v)
	if err != nil {
		s.log.Error("encode message", zap.Error(err))
		return
	}
	s.Send(b)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the session is disconnected (backpressure).
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow client")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(100*time.Millisecond))
		s.conn.Close()
		if s.onClose != nil {
			s.onClose(s.ID)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop runs in its own goroutine. It reads frames, decodes them and
// pushes them onto InQueue for the game loop to consume. Malformed frames are
// answered with an error message and otherwise ignored.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		if s.opts.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		}
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		msg, err := DecodeClient(frame)
		if err != nil {
			s.log.Debug("bad frame", zap.Error(err))
			s.reject(err)
			continue
		}

		// Key events must not be dropped: a lost key-up leaves a player
		// walking forever. Blocking only stalls this client.
		select {
		case s.InQueue <- msg:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) reject(err error) {
	b, encErr := Encode(ErrorMessage{Type: TypeError, Message: err.Error()})
	if encErr != nil {
		return
	}
	select {
	case s.OutQueue <- b:
	default:
	}
}

// writeLoop runs in its own goroutine. It writes queued frames to the socket.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if !s.writeOne(data) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOne(data []byte) bool {
	if s.opts.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
