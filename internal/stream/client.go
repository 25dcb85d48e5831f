package stream

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Client connects to a stream server, receives control messages and PCM
// frames, and queues PCM frames for a caller-driven playback loop.
type Client struct {
	logger *log.Logger
	conn   net.Conn

	mu      sync.Mutex
	queue   [][]byte
	closed  bool
	done    chan struct{}
}

// NewClient constructs a Client.
func NewClient(logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{logger: logger, done: make(chan struct{})}
}

// Connect dials host:port and starts the receive loop. name is announced
// to the server via a set_name control message.
func (c *Client) Connect(host string, port int, name string) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	c.conn = conn

	go c.receiveLoop()

	if err := c.sendControl(ControlMessage{Type: msgSetName, Name: name}); err != nil {
		c.logger.Warn("failed to send set_name", "err", err)
	}

	c.logger.Info("connected to server", "addr", addr)
	return nil
}

// Disconnect closes the connection and stops the receive loop.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping sends a ping control message; the server's pong reply is handled
// silently by the receive loop (no round-trip value is surfaced here, as
// in the original client).
func (c *Client) Ping() error {
	return c.sendControl(ControlMessage{Type: msgPing})
}

func (c *Client) sendControl(msg ControlMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return writeFrame(c.conn, kindControl, payload)
}

func (c *Client) receiveLoop() {
	for {
		kind, payload, err := readFrame(c.conn)
		if err != nil {
			c.logger.Info("server closed connection", "err", err)
			return
		}
		switch kind {
		case kindControl:
			var msg ControlMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				c.logger.Warn("malformed control message", "err", err)
				continue
			}
			c.handleControl(msg)
		case kindPCM:
			c.mu.Lock()
			c.queue = append(c.queue, payload)
			c.mu.Unlock()
		}
	}
}

func (c *Client) handleControl(msg ControlMessage) {
	switch msg.Type {
	case msgWelcome:
		c.logger.Info("server", "message", msg.Message)
	case msgPong:
		// no-op, matches the original client's bare pass
	}
}

// NextFrame pops the oldest queued PCM frame, or returns nil if the queue
// is empty. Callers poll this in their own playback loop, mirroring the
// original client's 1ms poll.
func (c *Client) NextFrame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	frame := c.queue[0]
	c.queue = c.queue[1:]
	return frame
}

// QueueDepth reports the current backlog of unplayed PCM frames.
func (c *Client) QueueDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// PlaybackPollInterval is the poll interval a caller's playback loop
// should use when NextFrame returns nil, matching the original client's
// 1ms sleep-and-retry.
const PlaybackPollInterval = time.Millisecond
