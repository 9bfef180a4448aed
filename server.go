package teleop

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/arnodb/teleop/attach"
	"github.com/arnodb/teleop/cancel"
	"github.com/arnodb/teleop/capability"
	"github.com/arnodb/teleop/rendezvous"
)

// Server is an embeddable target-process endpoint: once Serve is
// called, the process is attachable and, once attached, serves
// capability sessions out of Router.
type Server struct {
	Router *capability.Router
	Logger *zap.Logger

	cfg      *Config
	attacher attach.Attacher
	token    *cancel.Token
	listener *rendezvous.Listener
}

// NewServer validates cfg and builds a Server around router. Pass
// capability.NewRouter() with services already registered via
// RegisterService; Server does not register any services itself.
func NewServer(cfg *Config, router *capability.Router, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	attacher, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Server{
		Router:   router,
		Logger:   logger,
		cfg:      cfg,
		attacher: attacher,
		token:    cancel.New(),
	}, nil
}

// Serve arms the attacher and begins serving capability sessions in
// the background. It returns once arming has started; call Shutdown
// to stop.
func (s *Server) Serve(ctx context.Context) error {
	s.listener = &rendezvous.Listener{
		PID:      os.Getpid(),
		Attacher: s.attacher,
		Logger:   s.Logger,
		Token:    s.token,
		Handle:   s.handleConnection,
	}
	return s.listener.Start(ctx)
}

// Shutdown stops accepting new rendezvous connections, cancels every
// in-flight capability session, and removes the rendezvous endpoint.
func (s *Server) Shutdown(ctx context.Context) error {
	s.token.Cancel()
	if s.listener != nil {
		return s.listener.Shutdown(ctx)
	}
	return nil
}

const debugHandshakePrefix = "teleop-debug:"

func (s *Server) handleConnection(conn net.Conn) {
	rwc, err := s.peekDebugHandshake(conn)
	if err != nil {
		s.Logger.Debug("rendezvous connection closed before handshake", zap.Error(err))
		return
	}

	if err := capability.RunServerConnection(s.token.Context(), rwc, s.Router, s.Logger); err != nil {
		s.Logger.Debug("capability session ended with error", zap.Error(err))
	}
}

// peekDebugHandshake optionally consumes a single "teleop-debug:" line
// from conn before the capability session's byte stream begins. It is
// a diagnostic hook, not part of the capability wire protocol: when
// AllowDebugHandshake is false, or the peer sends none, conn is
// returned untouched (modulo minimal buffering to detect the line).
func (s *Server) peekDebugHandshake(conn net.Conn) (net.Conn, error) {
	if !s.cfg.AllowDebugHandshake {
		return conn, nil
	}

	reader := bufio.NewReader(conn)
	peeked, err := reader.Peek(len(debugHandshakePrefix))
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &bufferedConn{r: reader, Conn: conn}, nil
		}
		return nil, err
	}

	if string(peeked) != debugHandshakePrefix {
		return &bufferedConn{r: reader, Conn: conn}, nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, debugHandshakePrefix))
	s.Logger.Debug("teleop debug handshake",
		zap.String("line", payload),
		zap.Strings("registered_services", s.Router.Names()),
	)

	return &bufferedConn{r: reader, Conn: conn}, nil
}

// bufferedConn lets a bufio.Reader's look-ahead buffer sit in front of
// a net.Conn without losing the Conn's Write/Close behavior.
type bufferedConn struct {
	r *bufio.Reader
	net.Conn
}

func (b *bufferedConn) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

// NewClientSession dials pid's rendezvous endpoint (attaching if
// necessary) and returns the client half of a capability session.
func NewClientSession(ctx context.Context, pid int, attacher attach.Attacher, logger *zap.Logger) (*capability.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := rendezvous.Connect(ctx, pid, attacher)
	if err != nil {
		return nil, err
	}

	client, err := capability.NewClient(conn, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}
