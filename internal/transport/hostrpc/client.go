package hostrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/objects"
	"arenagrid.ai/internal/protocol"
)

var (
	_ objects.Host      = (*Client)(nil)
	_ objects.Directory = (*Client)(nil)
)

// ErrClosed is returned by calls on a client whose connection is gone.
var ErrClosed = errors.New("hostrpc: connection closed")

type ClientConfig struct {
	URL        string
	ClientName string

	// CallTimeout bounds one CALL/RESULT round trip.
	CallTimeout    time.Duration
	// ValidateFrames checks every RESULT against the bundled schemas.
	ValidateFrames bool
	Logger         *log.Logger
}

// RemoteError is a failure reported by the host in a RESULT frame.
type RemoteError struct {
	Op      string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("hostrpc %s: %s: %s", e.Op, e.Code, e.Message)
}

// Unwrap lets callers match host failures with errors.Is against the
// objects sentinels.
func (e *RemoteError) Unwrap() []error {
	errs := []error{objects.ErrHost}
	switch e.Code {
	case protocol.ErrUnknownObject:
		errs = append(errs, objects.ErrUnknownObject)
	case protocol.ErrUnsupported:
		errs = append(errs, objects.ErrUnsupported)
	}
	return errs
}

// Client is a synchronous host connection. Calls are serialized; each one
// writes a CALL and waits for the RESULT with the same id.
type Client struct {
	cfg       ClientConfig
	log       *log.Logger
	validator *protocol.Validator

	mu      sync.Mutex
	conn    *websocket.Conn
	nextID  uint64
	broken  error
	welcome protocol.WelcomeMsg
}

func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "arenagrid"
	}
	c := &Client{cfg: cfg, log: cfg.Logger}
	if c.log == nil {
		c.log = log.New(log.Writer(), "[hostrpc] ", log.LstdFlags|log.Lmicroseconds)
	}
	if cfg.ValidateFrames {
		v, err := protocol.NewValidator()
		if err != nil {
			return nil, err
		}
		c.validator = v
	}

	d := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := d.DialContext(ctx, cfg.URL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", objects.ErrHost, cfg.URL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      cfg.ClientName,
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: hello: %v", objects.ErrHost, err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: welcome: %v", objects.ErrHost, err)
	}
	if err := json.Unmarshal(msg, &c.welcome); err != nil || c.welcome.Type != protocol.TypeWelcome {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: expected WELCOME", objects.ErrHost)
	}
	if c.welcome.ProtocolVersion != protocol.Version {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: host speaks protocol %s", objects.ErrHost, c.welcome.ProtocolVersion)
	}
	c.conn = conn
	c.log.Printf("connected to %s (%s) session=%s tick=%d", c.welcome.HostName, cfg.URL, c.welcome.SessionID, c.welcome.Tick)
	return c, nil
}

func (c *Client) Welcome() protocol.WelcomeMsg { return c.welcome }

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	if c.broken == nil {
		c.broken = ErrClosed
	}
	return err
}

func (c *Client) call(msg protocol.CallMsg) (protocol.ResultMsg, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken != nil {
		return protocol.ResultMsg{}, fmt.Errorf("%w: %w", objects.ErrHost, c.broken)
	}

	c.nextID++
	msg.Type = protocol.TypeCall
	msg.ProtocolVersion = protocol.Version
	msg.ID = c.nextID
	b, err := json.Marshal(msg)
	if err != nil {
		return protocol.ResultMsg{}, fmt.Errorf("%w: encode %s: %v", objects.ErrHost, msg.Op, err)
	}

	deadline := time.Now().Add(c.cfg.CallTimeout)
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return protocol.ResultMsg{}, c.fail(msg.Op, err)
	}
	_ = c.conn.SetReadDeadline(deadline)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return protocol.ResultMsg{}, c.fail(msg.Op, err)
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil || base.Type != protocol.TypeResult {
			continue
		}
		if c.validator != nil {
			if err := c.validator.Validate(raw); err != nil {
				return protocol.ResultMsg{}, fmt.Errorf("%w: %s: invalid RESULT: %v", objects.ErrHost, msg.Op, err)
			}
		}
		var res protocol.ResultMsg
		if err := json.Unmarshal(raw, &res); err != nil {
			return protocol.ResultMsg{}, fmt.Errorf("%w: %s: decode RESULT: %v", objects.ErrHost, msg.Op, err)
		}
		// A zero id answers a frame the host could not parse.
		if res.ID != msg.ID && res.ID != 0 {
			continue
		}
		if !res.OK {
			return res, &RemoteError{Op: msg.Op, Code: res.Code, Message: res.Message}
		}
		return res, nil
	}
}

// fail poisons the connection; gorilla connections are unusable after a
// read or write error.
func (c *Client) fail(op string, err error) error {
	c.broken = err
	c.log.Printf("%s: connection lost: %v", op, err)
	return fmt.Errorf("%w: %s: %v", objects.ErrHost, op, err)
}

func (c *Client) Attr(obj hostval.Ref, name string) (hostval.Value, error) {
	msg := protocol.CallMsg{Op: objects.OpAttr, Origin: &obj, Name: name}
	res, err := c.call(msg)
	if err != nil {
		return hostval.Undefined(), err
	}
	return valueOf(res), nil
}

func (c *Client) FindInRange(origin hostval.Ref, targets []hostval.Value, r uint8) ([]hostval.Value, error) {
	msg := protocol.CallMsg{Op: objects.OpFindInRange, Origin: &origin, Targets: targets, Range: int(r)}
	res, err := c.call(msg)
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

func (c *Client) FindClosestByRange(origin hostval.Ref, targets []hostval.Value) (hostval.Value, error) {
	msg := protocol.CallMsg{Op: objects.OpFindClosestByRange, Origin: &origin, Targets: targets}
	res, err := c.call(msg)
	if err != nil {
		return hostval.Undefined(), err
	}
	return valueOf(res), nil
}

func (c *Client) FindClosestByPath(origin hostval.Ref, targets []hostval.Value, opts *objects.FindPathOptions) (hostval.Value, error) {
	msg := protocol.CallMsg{Op: objects.OpFindClosestByPath, Origin: &origin, Targets: targets, Options: opts}
	res, err := c.call(msg)
	if err != nil {
		return hostval.Undefined(), err
	}
	return valueOf(res), nil
}

func (c *Client) FindPath(origin hostval.Ref, goal hostval.Value, opts *objects.FindPathOptions) (objects.SearchResults, error) {
	msg := protocol.CallMsg{Op: objects.OpFindPath, Origin: &origin, Target: &goal, Options: opts}
	res, err := c.call(msg)
	if err != nil {
		return objects.SearchResults{}, err
	}
	if res.Search == nil {
		return objects.SearchResults{}, fmt.Errorf("%w: findPath: RESULT without search", objects.ErrHost)
	}
	return *res.Search, nil
}

func (c *Client) GetRange(origin hostval.Ref, target hostval.Value) (uint8, error) {
	msg := protocol.CallMsg{Op: objects.OpGetRange, Origin: &origin, Target: &target}
	res, err := c.call(msg)
	if err != nil {
		return 0, err
	}
	if res.Range < 0 || res.Range > objects.GridMax {
		return 0, fmt.Errorf("%w: getRange: range %d out of bounds", objects.ErrHost, res.Range)
	}
	return uint8(res.Range), nil
}

func (c *Client) ObjectsByClass(class string) ([]hostval.Ref, error) {
	res, err := c.call(protocol.CallMsg{Op: objects.OpObjectsByClass, Class: class})
	if err != nil {
		return nil, err
	}
	refs := make([]hostval.Ref, 0, len(res.Values))
	for _, v := range res.Values {
		r, ok := v.AsRef()
		if !ok {
			return nil, fmt.Errorf("%w: objectsByClass: %s is not a ref", objects.ErrHost, v)
		}
		refs = append(refs, r)
	}
	return refs, nil
}

// valueOf treats a missing value as undefined.
func valueOf(res protocol.ResultMsg) hostval.Value {
	if res.Value == nil {
		return hostval.Undefined()
	}
	return *res.Value
}
