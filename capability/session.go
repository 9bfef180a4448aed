package capability

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/xtaci/smux"
	"go.uber.org/zap"
)

// state names the capability session's lifecycle, mirrored from
// spec.md §4.D: Opening -> Running -> {PeerClosed, LocalCancelled,
// IoError} -> Closed.
type state int32

const (
	stateOpening state = iota
	stateRunning
	statePeerClosed
	stateLocalCancelled
	stateIoError
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateOpening:
		return "opening"
	case stateRunning:
		return "running"
	case statePeerClosed:
		return "peer-closed"
	case stateLocalCancelled:
		return "local-cancelled"
	case stateIoError:
		return "io-error"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionTransportError reports that a capability session's underlying
// transport (the rendezvous connection) ended abnormally rather than
// via an ordinary peer-close or local cancellation. It is terminal for
// that one session only; a listener that accepted the connection keeps
// serving others.
type SessionTransportError struct {
	Err error
}

func (e *SessionTransportError) Error() string {
	return fmt.Sprintf("capability: session transport failed: %s", e.Err)
}

func (e *SessionTransportError) Unwrap() error {
	return e.Err
}

// callRequest is the gob-encoded envelope written once per smux stream
// by the client: resolve Service, invoke Method on it with Args.
type callRequest struct {
	Service string
	Method  string
	Args    []byte
}

// callResponse is the matching reply. ErrMsg is set instead of Result
// when the router or the capability itself failed the call.
type callResponse struct {
	Result []byte
	ErrMsg string
}

// RunServerConnection serves one accepted rendezvous connection as a
// multiplexed capability session: every smux.Stream the peer opens
// carries exactly one callRequest/callResponse pair, resolved against
// router. It returns once the underlying connection is gone or ctx is
// cancelled; both are treated as ordinary session teardown, not as a
// failure of the listener that accepted conn.
func RunServerConnection(ctx context.Context, conn net.Conn, router *Router, logger *zap.Logger) error {
	st := int32(stateOpening)
	logger = logger.With(zap.String("remote", conn.RemoteAddr().String()))

	session, err := smux.Server(conn, smuxConfig())
	if err != nil {
		atomic.StoreInt32(&st, int32(stateIoError))
		return fmt.Errorf("capability: open server session: %w", err)
	}
	defer session.Close()

	atomic.StoreInt32(&st, int32(stateRunning))
	logger.Debug("capability session running", zap.String("state", stateRunning.String()))

	go func() {
		<-ctx.Done()
		atomic.CompareAndSwapInt32(&st, int32(stateRunning), int32(stateLocalCancelled))
		session.Close()
	}()

	for {
		stream, err := session.AcceptStream()
		if err != nil {
			final := stateIoError
			if session.IsClosed() || errors.Is(err, io.EOF) {
				if state(atomic.LoadInt32(&st)) == stateLocalCancelled {
					final = stateLocalCancelled
				} else {
					final = statePeerClosed
				}
			}
			atomic.StoreInt32(&st, int32(final))
			logger.Debug("capability session ended", zap.String("state", final.String()))
			atomic.StoreInt32(&st, int32(stateClosed))
			if final == statePeerClosed || final == stateLocalCancelled {
				return nil
			}
			return &SessionTransportError{Err: err}
		}

		go serveStream(ctx, stream, router, logger)
	}
}

func serveStream(ctx context.Context, stream *smux.Stream, router *Router, logger *zap.Logger) {
	defer stream.Close()

	var req callRequest
	if err := gob.NewDecoder(stream).Decode(&req); err != nil {
		if !errors.Is(err, io.EOF) {
			logger.Debug("capability: decode request failed", zap.Error(err))
		}
		return
	}

	resp := callResponse{}
	svc, err := router.Service(req.Service)
	if err != nil {
		resp.ErrMsg = err.Error()
	} else {
		result, err := svc.Invoke(ctx, req.Method, req.Args)
		if err != nil {
			resp.ErrMsg = err.Error()
		} else {
			resp.Result = result
		}
	}

	if err := gob.NewEncoder(stream).Encode(resp); err != nil {
		logger.Debug("capability: encode response failed", zap.Error(err))
	}
}

// Client is the caller side of a capability session: Teleop.service(name)
// resolution is folded into Call, which opens one stream per invocation
// rather than caching a separate handle object.
type Client struct {
	session *smux.Session
	logger  *zap.Logger
}

// NewClient wraps conn (the rendezvous socket returned by
// rendezvous.Connect) as the client half of a capability session.
func NewClient(conn net.Conn, logger *zap.Logger) (*Client, error) {
	session, err := smux.Client(conn, smuxConfig())
	if err != nil {
		return nil, fmt.Errorf("capability: open client session: %w", err)
	}
	return &Client{session: session, logger: logger}, nil
}

// Call resolves service and invokes method on it with args, returning
// the capability's raw result bytes. Each call opens and closes its
// own multiplexed stream; the underlying router cell for service is
// realized at most once regardless of how many calls are made.
func (c *Client) Call(ctx context.Context, service, method string, args []byte) ([]byte, error) {
	stream, err := c.session.OpenStream()
	if err != nil {
		return nil, fmt.Errorf("capability: open stream: %w", err)
	}
	defer stream.Close()

	if deadline, ok := ctx.Deadline(); ok {
		stream.SetDeadline(deadline)
	}

	if err := gob.NewEncoder(stream).Encode(callRequest{Service: service, Method: method, Args: args}); err != nil {
		return nil, fmt.Errorf("capability: encode request: %w", err)
	}

	var resp callResponse
	if err := gob.NewDecoder(stream).Decode(&resp); err != nil {
		return nil, fmt.Errorf("capability: decode response: %w", err)
	}
	if resp.ErrMsg != "" {
		return nil, errors.New(resp.ErrMsg)
	}
	return resp.Result, nil
}

// Close tears down the whole multiplexed session, ending every stream
// the peer may still have open.
func (c *Client) Close() error {
	err := c.session.Close()
	if err != nil {
		c.logger.Debug("capability: session close failed", zap.Error(err))
	}
	return err
}

func smuxConfig() *smux.Config {
	return smux.DefaultConfig()
}
