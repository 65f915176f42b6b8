package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// RequestTimeout bounds the wait for a response to one command.
	RequestTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		RequestTimeout:   30 * time.Second,
	}
}

// ErrClientClosed is returned after Close.
var ErrClientClosed = errors.New("client closed")

// WSClient implements Client over the rippled WebSocket API. Commands are
// correlated with responses by id; a dropped connection fails in-flight
// commands and the next command redials.
type WSClient struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps request ID to the channel waiting for its response
	pending   map[uint64]chan wsResponse
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// Compile-time interface check.
var _ Client = (*WSClient)(nil)

// NewWSClient creates a WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		pending:  make(map[uint64]chan wsResponse),
		done:     make(chan struct{}),
	}

	if _, err := c.ensureConn(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// ensureConn returns the live connection, dialing when there is none.
func (c *WSClient) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn

	c.wg.Add(1)
	go c.readLoop(conn)

	return conn, nil
}

// AccountTx retrieves one page of account transactions.
func (c *WSClient) AccountTx(ctx context.Context, req AccountTxRequest) (*AccountTxResult, error) {
	var result AccountTxResult
	if err := c.command(ctx, "account_tx", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// command sends one command and waits for the matching response.
func (c *WSClient) command(ctx context.Context, name string, params interface{}, result interface{}) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	reqID := c.requestID.Add(1)
	msg, err := commandMessage(name, reqID, params)
	if err != nil {
		return err
	}

	conn, err := c.ensureConn(ctx)
	if err != nil {
		return err
	}

	respCh := make(chan wsResponse, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}()

	c.connMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err = conn.WriteJSON(msg)
	c.connMu.Unlock()
	if err != nil {
		c.dropConn(conn)
		return fmt.Errorf("write %s: %w", name, err)
	}

	var resp wsResponse
	select {
	case r, ok := <-respCh:
		if !ok {
			return errors.New("connection lost")
		}
		resp = r
	case <-time.After(c.config.RequestTimeout):
		return fmt.Errorf("%s timeout after %s", name, c.config.RequestTimeout)
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	if resp.Status == "error" || resp.Code != "" {
		rpcErr := resp.rpcError
		return &rpcErr
	}
	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// commandMessage flattens params into a WebSocket command object.
func commandMessage(name string, id uint64, params interface{}) (map[string]interface{}, error) {
	msg := make(map[string]interface{})
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		if err := json.Unmarshal(b, &msg); err != nil {
			return nil, fmt.Errorf("flatten params: %w", err)
		}
	}
	msg["id"] = id
	msg["command"] = name
	return msg, nil
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop dispatches responses for one connection until it fails.
func (c *WSClient) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	defer c.dropConn(conn)

	for !c.closed.Load() {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(message)
	}
}

// dropConn forgets conn and fails every in-flight command.
func (c *WSClient) dropConn(conn *websocket.Conn) {
	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
		conn.Close()
	}
	c.connMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

func (c *WSClient) handleMessage(message []byte) {
	var resp wsResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return
	}
	// Stream messages carry a type other than "response" and no id.
	if resp.Type != "" && resp.Type != "response" {
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- resp:
		default:
		}
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// A dead connection surfaces in readLoop.
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// wsResponse is a rippled WebSocket response envelope.
type wsResponse struct {
	ID     uint64          `json:"id"`
	Status string          `json:"status"`
	Type   string          `json:"type"`
	Result json.RawMessage `json:"result"`
	rpcError
}
