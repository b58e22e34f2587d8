// Package hostrpc carries host calls over a websocket: a Server exposes any
// objects.Host at an HTTP endpoint and a Client implements objects.Host on
// top of that endpoint.
package hostrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/objects"
	"arenagrid.ai/internal/protocol"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	idleTimeout      = 60 * time.Second

	defaultMaxFrameBytes = 1 << 20
)

// Describer is implemented by hosts that can report their room size and
// clock for the WELCOME frame.
type Describer interface {
	Size() (width, height int)
	Tick() uint64
}

type ServerOptions struct {
	// Name is reported to clients as host_name.
	Name      string
	// Validator, when set, checks every inbound CALL frame.
	Validator *protocol.Validator

	// Describer overrides the one found on the host, for hosts wrapped in
	// decorators.
	Describer     Describer
	MaxFrameBytes int64
}

type Server struct {
	host objects.Host
	dir  objects.Directory
	desc Describer
	opts ServerOptions
	log  *log.Logger

	upgrader websocket.Upgrader
}

// NewServer serves h. Directory and Describer are picked up from h when it
// implements them.
func NewServer(h objects.Host, logger *log.Logger, opts ServerOptions) *Server {
	if opts.Name == "" {
		opts.Name = "host"
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = defaultMaxFrameBytes
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[hostrpc] ", log.LstdFlags|log.Lmicroseconds)
	}
	s := &Server{
		host: h,
		opts: opts,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	s.dir, _ = h.(objects.Directory)
	s.desc, _ = h.(Describer)
	if opts.Describer != nil {
		s.desc = opts.Describer
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(s.opts.MaxFrameBytes)

		session := s.handshake(conn)
		if session == "" {
			return
		}
		s.log.Printf("session %s connected from %s", session, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		out := make(chan []byte, 16)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		calls := 0
		for {
			_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			res := s.handleFrame(msg)
			b, err := json.Marshal(res)
			if err != nil {
				s.log.Printf("session %s: encode result %d: %v", session, res.ID, err)
				b, _ = json.Marshal(protocol.NewFailure(res.ID, protocol.ErrInternal, "result not encodable"))
			}
			calls++
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		s.log.Printf("session %s closed after %d calls", session, calls)
	}
}

func (s *Server) handshake(conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return ""
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return ""
	}
	if hello.MaxFrameBytes > 0 && int64(hello.MaxFrameBytes) < s.opts.MaxFrameBytes {
		conn.SetReadLimit(int64(hello.MaxFrameBytes))
	}

	w := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		HostName:        s.opts.Name,
		SessionID:       ulid.Make().String(),
		Width:           objects.GridMax + 1,
		Height:          objects.GridMax + 1,
	}
	if s.desc != nil {
		w.Width, w.Height = s.desc.Size()
		w.Tick = s.desc.Tick()
	}
	if err := writeJSON(conn, w); err != nil {
		return ""
	}
	if hello.ClientName != "" {
		s.log.Printf("session %s: client %q", w.SessionID, hello.ClientName)
	}
	return w.SessionID
}

func (s *Server) handleFrame(msg []byte) protocol.ResultMsg {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.NewFailure(0, protocol.ErrProtoBadRequest, "frame is not JSON")
	}
	var call protocol.CallMsg
	if err := json.Unmarshal(msg, &call); err != nil {
		return protocol.NewFailure(call.ID, protocol.ErrProtoBadRequest, err.Error())
	}
	if base.Type != protocol.TypeCall {
		return protocol.NewFailure(call.ID, protocol.ErrProtoBadRequest, "expected CALL, got "+base.Type)
	}
	if call.ProtocolVersion != protocol.Version {
		return protocol.NewFailure(call.ID, protocol.ErrProtoVersion, "unsupported protocol_version "+call.ProtocolVersion)
	}
	if s.opts.Validator != nil {
		if err := s.opts.Validator.Validate(msg); err != nil {
			return protocol.NewFailure(call.ID, protocol.ErrProtoBadRequest, err.Error())
		}
	}
	return s.dispatch(call)
}

func (s *Server) dispatch(call protocol.CallMsg) protocol.ResultMsg {
	res := protocol.NewResult(call.ID)
	if call.Op != objects.OpObjectsByClass && call.Origin == nil {
		return protocol.NewFailure(call.ID, protocol.ErrBadRequest, call.Op+": missing origin")
	}

	var err error
	switch call.Op {
	case objects.OpAttr:
		var v hostval.Value
		v, err = s.host.Attr(*call.Origin, call.Name)
		res.Value = &v
	case objects.OpFindInRange:
		if call.Range < 0 || call.Range > objects.GridMax {
			return protocol.NewFailure(call.ID, protocol.ErrBadRequest, fmt.Sprintf("range %d out of bounds", call.Range))
		}
		res.Values, err = s.host.FindInRange(*call.Origin, call.Targets, uint8(call.Range))
	case objects.OpFindClosestByRange:
		var v hostval.Value
		v, err = s.host.FindClosestByRange(*call.Origin, call.Targets)
		res.Value = &v
	case objects.OpFindClosestByPath:
		var v hostval.Value
		v, err = s.host.FindClosestByPath(*call.Origin, call.Targets, call.Options)
		res.Value = &v
	case objects.OpFindPath:
		if call.Target == nil {
			return protocol.NewFailure(call.ID, protocol.ErrBadRequest, "findPath: missing target")
		}
		var sr objects.SearchResults
		sr, err = s.host.FindPath(*call.Origin, *call.Target, call.Options)
		res.Search = &sr
	case objects.OpGetRange:
		if call.Target == nil {
			return protocol.NewFailure(call.ID, protocol.ErrBadRequest, "getRange: missing target")
		}
		var r uint8
		r, err = s.host.GetRange(*call.Origin, *call.Target)
		res.Range = int(r)
	case objects.OpObjectsByClass:
		if s.dir == nil {
			return protocol.NewFailure(call.ID, protocol.ErrUnsupported, "host does not list objects")
		}
		var refs []hostval.Ref
		refs, err = s.dir.ObjectsByClass(call.Class)
		res.Values = make([]hostval.Value, len(refs))
		for i, r := range refs {
			res.Values[i] = hostval.RefTo(r)
		}
	default:
		return protocol.NewFailure(call.ID, protocol.ErrUnknownOp, "unknown op "+call.Op)
	}
	if err != nil {
		return protocol.NewFailure(call.ID, protocol.CodeOf(err), err.Error())
	}
	return res
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
