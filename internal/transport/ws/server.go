package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxeldisplay.ai/internal/persistence/displaydb"
	persistlog "voxeldisplay.ai/internal/persistence/log"
	"voxeldisplay.ai/internal/protocol"
	"voxeldisplay.ai/internal/sim/rotation"
)

type Store interface {
	Put(ctx context.Context, pos [3]int, rot rotation.State, by string) (rotation.State, bool, error)
	All(ctx context.Context) ([]displaydb.Display, error)
}

type Auditor interface {
	WriteAudit(persistlog.AuditEntry) error
}

type Options struct {
	MaxQueue     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	store Store
	audit Auditor
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	nextID  atomic.Uint64
}

type client struct {
	id     string
	name   string
	binary bool
	out    chan frame
}

type frame struct {
	kind int // websocket.TextMessage or websocket.BinaryMessage
	data []byte
}

// NewServer wires the display store and an optional audit sink.
func NewServer(store Store, audit Auditor, logger *log.Logger, opts Options) *Server {
	if opts.MaxQueue <= 0 {
		opts.MaxQueue = 8
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Server{
		store: store,
		audit: audit,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: map[*client]struct{}{},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := s.handshake(context.Background(), conn)
		if c == nil {
			return
		}
		defer s.unregister(c)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case f := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
					if err := conn.WriteMessage(f.kind, f.data); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.sendError(c, "", fmt.Errorf("%w: %v", protocol.ErrBadEnvelope, err))
				continue
			}
			if base.Type != protocol.TypeSetRotation {
				continue
			}
			s.handleSet(ctx, c, msg)
		}
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) *client {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}
	if err := protocol.ValidateHello(msg); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}
	name := strings.TrimSpace(hello.ClientName)
	if name == "" {
		name = "client"
	}
	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 || maxQ > s.opts.MaxQueue {
		maxQ = s.opts.MaxQueue
	}

	c := &client{
		id:     fmt.Sprintf("S%d", s.nextID.Add(1)),
		name:   name,
		binary: hello.Capabilities.BinaryFrames,
		out:    make(chan frame, maxQ),
	}
	// Register before reading the store so no update falls between the
	// welcome listing and the first broadcast.
	s.register(c)

	displays, err := s.store.All(ctx)
	if err != nil {
		s.logf("welcome %s: list displays: %v", c.id, err)
		s.unregister(c)
		return nil
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       c.id,
		Rotations:       make([]string, 0, rotation.NumStates),
		Displays:        make([]protocol.DisplayRef, 0, len(displays)),
	}
	for _, st := range rotation.All() {
		welcome.Rotations = append(welcome.Rotations, st.Name())
	}
	for _, d := range displays {
		welcome.Displays = append(welcome.Displays, protocol.DisplayRef{Pos: d.Pos, Rotation: d.Rotation})
	}
	if err := writeJSON(conn, welcome, s.opts.WriteTimeout); err != nil {
		s.unregister(c)
		return nil
	}
	return c
}

func (s *Server) handleSet(ctx context.Context, c *client, msg []byte) {
	if err := protocol.ValidateSetRotation(msg); err != nil {
		s.sendError(c, "", err)
		return
	}
	var set protocol.SetRotationMsg
	if err := json.Unmarshal(msg, &set); err != nil {
		s.sendError(c, "", fmt.Errorf("%w: %v", protocol.ErrBadEnvelope, err))
		return
	}
	if set.ProtocolVersion != protocol.Version {
		s.sendError(c, set.ReqID, fmt.Errorf("%w: bad protocol_version %q", protocol.ErrBadEnvelope, set.ProtocolVersion))
		return
	}
	rot, err := rotation.DecodeJSON(set.Rotation)
	if err != nil {
		s.sendError(c, set.ReqID, err)
		return
	}
	if err := s.Apply(ctx, set.Pos, rot, c.name, set.ReqID); err != nil {
		s.logf("set %v from %s: %v", set.Pos, c.id, err)
		s.sendError(c, set.ReqID, err)
	}
}

// Apply stores, audits and broadcasts one rotation change.
func (s *Server) Apply(ctx context.Context, pos [3]int, rot rotation.State, by, reqID string) error {
	prev, hadPrev, err := s.store.Put(ctx, pos, rot, by)
	if err != nil {
		return err
	}
	if s.audit != nil {
		entry := persistlog.AuditEntry{Time: time.Now().UTC(), Pos: pos, To: rot, By: by, ReqID: reqID}
		if hadPrev {
			entry.From = &prev
		}
		if err := s.audit.WriteAudit(entry); err != nil {
			s.logf("audit %v: %v", pos, err)
		}
	}
	return s.broadcast(pos, rot, by)
}

func (s *Server) broadcast(pos [3]int, rot rotation.State, by string) error {
	text, err := json.Marshal(protocol.RotationMsg{
		Type:            protocol.TypeRotation,
		ProtocolVersion: protocol.Version,
		Pos:             pos,
		Rotation:        rot,
		By:              by,
	})
	if err != nil {
		return err
	}
	bin, err := protocol.AppendRotationFrame(nil, pos, rot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		f := frame{kind: websocket.TextMessage, data: text}
		if c.binary {
			f = frame{kind: websocket.BinaryMessage, data: bin}
		}
		select {
		case c.out <- f:
		default:
			s.logf("drop rotation update for %s: queue full", c.id)
		}
	}
	return nil
}

func (s *Server) sendError(c *client, reqID string, err error) {
	b, mErr := json.Marshal(protocol.NewErrorMsg(reqID, err))
	if mErr != nil {
		return
	}
	select {
	case c.out <- frame{kind: websocket.TextMessage, data: b}:
	default:
		s.logf("drop error for %s: queue full", c.id)
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// Clients reports the number of connected sessions.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any, timeout time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
