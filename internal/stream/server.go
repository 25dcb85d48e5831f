package stream

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"

	"github.com/syncwave/syncwave/internal/netutil"
	"github.com/syncwave/syncwave/internal/syncwave"
)

// clientQueueDepth bounds each client's outgoing packet backlog so a slow
// LAN listener cannot stall the engine's steady-state worker or other
// clients (Backpressure Gap redesign).
const clientQueueDepth = 64

var serverTimeFormat = strftime.MustNew("%Y-%m-%d %H:%M:%S")

// client is one connected listener's server-side state.
type client struct {
	conn  net.Conn
	name  string
	queue chan []byte
	done  chan struct{}
}

// Server accepts stream clients and broadcasts PCM audio to all of them.
// It satisfies engine.Broadcaster.
type Server struct {
	logger *log.Logger

	mu       sync.Mutex
	clients  map[*client]struct{}
	listener *net.TCPListener
}

// NewServer constructs a Server. Call Listen to start accepting.
func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{logger: logger, clients: make(map[*client]struct{})}
}

// Listen binds the given TCP port and starts the accept loop in a new
// goroutine. It returns once the socket is bound.
func (s *Server) Listen(port int) error {
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return &syncwave.NetworkBindError{Address: addr, Err: err}
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if ok {
		if err := netutil.SetReuseAddr(tcpLn); err != nil {
			s.logger.Warn("could not set SO_REUSEADDR", "err", err)
		}
	}

	s.mu.Lock()
	s.listener = tcpLn
	s.mu.Unlock()

	go s.acceptLoop(ln)
	s.logger.Info("stream server listening", "port", port)
	return nil
}

// Close stops accepting new connections and disconnects every client.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.listener
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, c := range clients {
		s.removeClient(c)
	}
	return err
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.logger.Info("accept loop stopped", "err", err)
			return
		}
		go s.handleClient(conn)
	}
}

func (s *Server) handleClient(conn net.Conn) {
	c := &client{
		conn:  conn,
		name:  conn.RemoteAddr().String(),
		queue: make(chan []byte, clientQueueDepth),
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()

	s.logger.Info("client connected", "remote", c.name, "clients", count)

	go s.writerLoop(c)

	welcome := ControlMessage{
		Type:    msgWelcome,
		Message: fmt.Sprintf("connected at %s", serverTimeFormat.FormatString(time.Now())),
	}
	s.sendControl(c, welcome)

	defer s.removeClient(c)

	for {
		kind, payload, err := readFrame(conn)
		if err != nil {
			s.logger.Info("client disconnected", "remote", c.name, "err", err)
			return
		}
		if kind != kindControl {
			continue // clients never send PCM frames
		}
		var msg ControlMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("malformed control message", "remote", c.name, "err", err)
			continue
		}
		s.dispatch(c, msg)
	}
}

func (s *Server) dispatch(c *client, msg ControlMessage) {
	switch msg.Type {
	case msgPing:
		s.sendControl(c, ControlMessage{Type: msgPong})
	case msgStatus:
		s.mu.Lock()
		count := len(s.clients)
		s.mu.Unlock()
		s.sendControl(c, ControlMessage{Type: msgStatus, Clients: count})
	case msgSetName:
		c.name = msg.Name
		s.logger.Info("client renamed", "name", msg.Name)
	default:
		s.logger.Warn("unknown control message type", "type", msg.Type)
	}
}

func (s *Server) sendControl(c *client, msg ControlMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("marshal control message", "err", err)
		return
	}
	select {
	case c.queue <- append([]byte{kindControl}, payload...):
	default:
		s.logger.Warn("client control queue full, dropping message", "remote", c.name)
	}
}

// writerLoop drains a client's outgoing queue, writing raw pre-framed
// entries where the first byte distinguishes kind from the caller.
func (s *Server) writerLoop(c *client) {
	for {
		select {
		case entry, ok := <-c.queue:
			if !ok {
				return
			}
			kind := entry[0]
			payload := entry[1:]
			if err := writeFrame(c.conn, kind, payload); err != nil {
				s.logger.Info("write failed, dropping client", "remote", c.name, "err", err)
				s.removeClient(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	_, present := s.clients[c]
	delete(s.clients, c)
	count := len(s.clients)
	s.mu.Unlock()

	if !present {
		return
	}
	close(c.done)
	_ = c.conn.Close()
	s.logger.Info("client removed", "remote", c.name, "clients", count)
}

// Broadcast sends a raw PCM block to every connected client, dropping the
// oldest queued packet for any client whose backlog is full rather than
// blocking the caller (spec: Backpressure Gap redesign).
func (s *Server) Broadcast(pcm []byte) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	entry := append([]byte{kindPCM}, pcm...)
	for _, c := range clients {
		select {
		case c.queue <- entry:
		default:
			select {
			case <-c.queue:
			default:
			}
			select {
			case c.queue <- entry:
			default:
			}
		}
	}
}

// ClientCount reports the number of currently connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
