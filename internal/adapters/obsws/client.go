// Package obsws is the control-plane transport: one persistent websocket to
// OBS, a 3-step handshake, correlated request/response, and out-of-band event
// dispatch.
package obsws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
	obs "github.com/dmhernandez2525/obs-tutorial-recorder/internal/infrastructure/observability"
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateHandshaking
	stateConnected
)

// Client owns the single websocket connection to OBS. Callers block in Send
// while a dedicated reader goroutine demultiplexes frames into per-request
// completion channels and the event dispatcher, so concurrent callers never
// consume each other's responses and interleaved events are never dropped.
type Client struct {
	URL              string
	HandshakeTimeout time.Duration
	RequestTimeout   time.Duration

	log        zerolog.Logger
	metrics    *obs.Metrics
	dispatcher *Dispatcher

	mu         sync.Mutex
	conn       *websocket.Conn
	state      connState
	reqID      uint64
	pending    map[string]chan domain.Response
	readerDone chan struct{}

	// serializes frame writes; gorilla conns allow one concurrent writer
	writeMu sync.Mutex
}

func NewClient(url string, logger *zerolog.Logger, metrics *obs.Metrics) *Client {
	l := logger.With().Str("component", "obsws").Logger()
	return &Client{
		URL:              url,
		HandshakeTimeout: 5 * time.Second,
		RequestTimeout:   10 * time.Second,
		log:              l,
		metrics:          metrics,
		dispatcher:       NewDispatcher(l),
		pending:          make(map[string]chan domain.Response),
	}
}

// Events exposes the dispatcher for callback registration.
func (c *Client) Events() *Dispatcher { return c.dispatcher }

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateConnected
}

// wire envelope shared by every frame direction
type envelope struct {
	Op domain.OpCode   `json:"op"`
	D  json.RawMessage `json:"d"`
}

type helloData struct {
	OBSWebSocketVersion string `json:"obsWebSocketVersion"`
}

type identifiedData struct {
	NegotiatedRPCVersion int `json:"negotiatedRpcVersion"`
}

type requestData struct {
	RequestType string         `json:"requestType"`
	RequestID   string         `json:"requestId"`
	RequestData map[string]any `json:"requestData,omitempty"`
}

type responseData struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment"`
	} `json:"requestStatus"`
	ResponseData map[string]any `json:"responseData"`
}

type eventData struct {
	EventType string         `json:"eventType"`
	EventData map[string]any `json:"eventData"`
}

// Connect performs the handshake with retry. Calling it while already
// connected is a no-op returning true. Only exhausting every attempt is a
// hard failure.
func (c *Client) Connect(maxRetries int, retryDelay time.Duration) bool {
	c.mu.Lock()
	if c.state == stateConnected {
		c.mu.Unlock()
		return true
	}
	c.state = stateConnecting
	c.mu.Unlock()

	c.log.Info().Str("url", c.URL).Msg("connecting to OBS websocket")

	for attempt := 1; attempt <= maxRetries; attempt++ {
		c.metrics.ConnectAttempts.Inc()
		conn, err := c.attemptHandshake()
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.state = stateConnected
			c.readerDone = make(chan struct{})
			done := c.readerDone
			c.mu.Unlock()
			go c.readLoop(conn, done)
			return true
		}
		c.log.Debug().Err(err).Int("attempt", attempt).Int("max", maxRetries).Msg("handshake attempt failed")
		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	c.mu.Lock()
	c.state = stateDisconnected
	c.mu.Unlock()

	c.log.Error().Int("attempts", maxRetries).Msg("failed to connect to OBS websocket")
	c.log.Error().Msg("enable the server in OBS: Tools > WebSocket Server Settings > Enable WebSocket Server")
	c.log.Error().Msg("uncheck 'Enable Authentication', keep port 4455, then restart OBS")
	return false
}

func (c *Client) attemptHandshake() (*websocket.Conn, error) {
	c.mu.Lock()
	c.state = stateConnecting
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.HandshakeTimeout}
	conn, _, err := dialer.Dial(c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.state = stateHandshaking
	c.mu.Unlock()

	fail := func(err error) (*websocket.Conn, error) {
		_ = conn.Close()
		return nil, err
	}

	// Step 1: server Hello (op=0)
	var hello helloData
	op, err := c.readFrame(conn, &hello)
	if err != nil {
		return fail(fmt.Errorf("hello: %w", err))
	}
	if op != domain.OpHello {
		return fail(fmt.Errorf("hello: unexpected op %d", op))
	}
	c.log.Debug().Str("obsWebSocketVersion", hello.OBSWebSocketVersion).Msg("received Hello")

	// Step 2: client Identify (op=1)
	identify, _ := json.Marshal(map[string]any{
		"op": domain.OpIdentify,
		"d":  map[string]any{"rpcVersion": domain.RPCVersion},
	})
	_ = conn.SetWriteDeadline(time.Now().Add(c.HandshakeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, identify); err != nil {
		return fail(fmt.Errorf("identify: %w", err))
	}
	_ = conn.SetWriteDeadline(time.Time{})

	// Step 3: server Identified (op=2)
	var identified identifiedData
	op, err = c.readFrame(conn, &identified)
	if err != nil {
		return fail(fmt.Errorf("identified: %w", err))
	}
	if op != domain.OpIdentified {
		return fail(fmt.Errorf("identified: unexpected op %d", op))
	}

	c.log.Info().Int("rpcVersion", identified.NegotiatedRPCVersion).Msg("connected to OBS websocket")
	return conn, nil
}

func (c *Client) readFrame(conn *websocket.Conn, into any) (domain.OpCode, error) {
	_ = conn.SetReadDeadline(time.Now().Add(c.HandshakeTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()
	_, data, err := conn.ReadMessage()
	if err != nil {
		return 0, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return 0, fmt.Errorf("malformed frame: %w", err)
	}
	if into != nil && len(env.D) > 0 {
		if err := json.Unmarshal(env.D, into); err != nil {
			return env.Op, fmt.Errorf("malformed frame payload: %w", err)
		}
	}
	return env.Op, nil
}

// Disconnect closes the socket unconditionally and waits for the reader to
// exit. Safe to call when not connected. The client must be reconnected via
// Connect before further use.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	done := c.readerDone
	c.conn = nil
	c.state = stateDisconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
	c.log.Info().Msg("disconnected from OBS websocket")
}

// Send issues a correlated request with the default timeout.
func (c *Client) Send(requestType string, data map[string]any) domain.Response {
	return c.SendTimeout(requestType, data, c.RequestTimeout)
}

// SendTimeout issues a correlated request and blocks until the matching
// response arrives or the timeout elapses. Failures come back as synthetic
// unsuccessful responses, never as panics or blocking past the deadline.
func (c *Client) SendTimeout(requestType string, data map[string]any, timeout time.Duration) domain.Response {
	c.mu.Lock()
	if c.state != stateConnected || c.conn == nil {
		c.mu.Unlock()
		c.log.Error().Str("type", requestType).Msg("cannot send request: not connected to OBS")
		c.countRequest(requestType, "not_connected")
		return domain.Response{
			Success:      false,
			RequestType:  requestType,
			ErrorMessage: "not connected to OBS",
		}
	}
	c.reqID++
	requestID := fmt.Sprintf("req_%d", c.reqID)
	ch := make(chan domain.Response, 1)
	c.pending[requestID] = ch
	conn := c.conn
	c.mu.Unlock()

	payload, _ := json.Marshal(map[string]any{
		"op": domain.OpRequest,
		"d": requestData{
			RequestType: requestType,
			RequestID:   requestID,
			RequestData: data,
		},
	})

	c.log.Debug().Str("type", requestType).Str("id", requestID).Msg("request")

	c.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
		c.countRequest(requestType, "write_error")
		return domain.Response{
			Success:      false,
			RequestType:  requestType,
			RequestID:    requestID,
			ErrorMessage: fmt.Sprintf("write failed: %v", err),
		}
	}

	select {
	case resp := <-ch:
		resp.RequestType = requestType
		if resp.Success {
			c.countRequest(requestType, "ok")
			c.log.Debug().Str("type", requestType).Msg("response ok")
		} else {
			c.countRequest(requestType, "error")
			c.log.Warn().Str("type", requestType).Int("code", resp.ErrorCode).Str("comment", resp.ErrorMessage).Msg("response failed")
		}
		return resp
	case <-time.After(timeout):
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
		c.countRequest(requestType, "timeout")
		c.log.Error().Str("type", requestType).Dur("timeout", timeout).Msg("request timed out")
		return domain.Response{
			Success:      false,
			RequestType:  requestType,
			RequestID:    requestID,
			ErrorMessage: "request timed out",
		}
	}
}

// readLoop is the only reader of the socket after the handshake. It routes
// op=7 frames to the pending request table and op=5 frames to the dispatcher.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.teardown(err)
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn().Err(err).Msg("malformed frame from OBS, dropping")
			continue
		}
		switch env.Op {
		case domain.OpRequestResp:
			var rd responseData
			if err := json.Unmarshal(env.D, &rd); err != nil {
				c.log.Warn().Err(err).Msg("malformed response payload, dropping")
				continue
			}
			resp := domain.Response{
				Success:     rd.RequestStatus.Result,
				RequestType: rd.RequestType,
				RequestID:   rd.RequestID,
				Data:        rd.ResponseData,
			}
			if !resp.Success {
				resp.ErrorCode = rd.RequestStatus.Code
				resp.ErrorMessage = rd.RequestStatus.Comment
			}
			c.mu.Lock()
			ch, ok := c.pending[rd.RequestID]
			if ok {
				delete(c.pending, rd.RequestID)
			}
			c.mu.Unlock()
			if ok {
				ch <- resp
			} else {
				// waiter already timed out
				c.log.Debug().Str("id", rd.RequestID).Msg("response for abandoned request")
			}
		case domain.OpEvent:
			var ed eventData
			if err := json.Unmarshal(env.D, &ed); err != nil {
				c.log.Warn().Err(err).Msg("malformed event payload, dropping")
				continue
			}
			c.metrics.EventsTotal.WithLabelValues(ed.EventType).Inc()
			c.dispatcher.Dispatch(domain.Event{Type: ed.EventType, Data: ed.EventData})
		default:
			c.log.Debug().Int("op", int(env.Op)).Msg("ignoring frame")
		}
	}
}

// teardown runs when the reader observes a socket failure: every in-flight
// request gets a synthetic failure and the connection becomes unusable.
func (c *Client) teardown(cause error) {
	c.mu.Lock()
	if c.state == stateConnected {
		c.log.Warn().Err(cause).Msg("connection to OBS lost")
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = stateDisconnected
	pending := c.pending
	c.pending = make(map[string]chan domain.Response)
	c.mu.Unlock()

	for id, ch := range pending {
		ch <- domain.Response{
			Success:      false,
			RequestID:    id,
			ErrorMessage: "connection to OBS lost",
		}
	}
}

func (c *Client) countRequest(requestType, status string) {
	c.metrics.RequestsTotal.WithLabelValues(requestType, status).Inc()
}
