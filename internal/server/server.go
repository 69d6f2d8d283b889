// Package server implements the TCP accept loop that exposes an
// *pkg/ember.DB over the wire protocol. Every accepted connection is
// handled on its own goroutine against the shared DB, which is already
// safe for concurrent use, so the server itself does no additional
// synchronization.
package server

import (
	"bufio"
	stdErrors "errors"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/iamNilotpal/ember/internal/protocol"
	"github.com/iamNilotpal/ember/pkg/ember"
	"github.com/iamNilotpal/ember/pkg/errors"
	"go.uber.org/zap"
)

// Server accepts TCP connections on a single listener and dispatches each
// one's frames against a shared database.
type Server struct {
	listener net.Listener
	db       *ember.DB
	log      *zap.SugaredLogger
}

// New binds addr and returns a Server ready to Run. The caller owns db's
// lifecycle; Server never closes it.
func New(addr string, db *ember.DB, log *zap.SugaredLogger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{listener: listener, db: db, log: log}, nil
}

// Addr returns the address the server is actually listening on, useful when
// addr was passed as "127.0.0.1:0" to pick an ephemeral port.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Run accepts connections until the listener is closed, handling each one
// on its own goroutine. Run returns nil once the listener is closed by
// Close; any other accept error is returned to the caller.
func (s *Server) Run() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if stdErrors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		sessionID := uuid.New().String()
		go s.handleConnection(conn, sessionID)
	}
}

// Close stops accepting new connections. In-flight connections are left to
// finish or be closed by their peers.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConnection(conn net.Conn, sessionID string) {
	defer conn.Close()

	log := s.log.With("session", sessionID, "remote", conn.RemoteAddr().String())
	log.Infow("client connected")

	reader := bufio.NewReader(conn)
	for {
		frame, err := protocol.ReadFrame(reader)
		if err != nil {
			if !stdErrors.Is(err, io.EOF) {
				log.Warnw("connection read failed", "error", err)
			}
			log.Infow("client disconnected")
			return
		}

		if err := s.dispatch(conn, log, frame); err != nil {
			log.Warnw("dispatch failed, closing connection", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(conn net.Conn, log *zap.SugaredLogger, frame protocol.Frame) error {
	switch frame.Type {
	case protocol.TypeSimple:
		return s.dispatchSimple(conn, log, frame.Text)
	case protocol.TypeBinary:
		return s.dispatchBinary(conn, log, frame)
	default:
		return protocol.WriteError(conn, "unrecognized request frame")
	}
}

func (s *Server) dispatchSimple(conn net.Conn, log *zap.SugaredLogger, command string) error {
	switch command {
	case "PING":
		return protocol.WriteSimple(conn, "PONG")
	default:
		log.Warnw("unknown simple command", "command", command)
		return protocol.WriteError(conn, "unknown command: "+command)
	}
}

// dispatchBinary handles PUT/GET/REMOVE, each tagged with its own opcode.
// PUT and REMOVE are fire-and-forget: they have no response frame to report
// success on, so on failure there is nothing to write either -- writing an
// error frame here would leave it unread in the stream and desync the next
// request's response. Instead the failure is logged and the connection is
// dropped, matching what client.Put/client.Remove document as the only
// observable failure signal for those two commands.
func (s *Server) dispatchBinary(conn net.Conn, log *zap.SugaredLogger, frame protocol.Frame) error {
	switch frame.Op {
	case protocol.OpPut:
		if err := s.db.Put(frame.Key, frame.Value); err != nil {
			logEngineError(log, "put failed, dropping connection", err)
			return err
		}
		return nil

	case protocol.OpGet:
		value, found, err := s.db.Get(frame.Key)
		if err != nil {
			logEngineError(log, "get failed", err)
			return protocol.WriteError(conn, err.Error())
		}
		return protocol.WriteGetResponse(conn, frame.Key, value, found)

	case protocol.OpRemove:
		if err := s.db.Remove(frame.Key); err != nil {
			logEngineError(log, "remove failed, dropping connection", err)
			return err
		}
		return nil

	default:
		log.Warnw("unknown binary opcode", "op", frame.Op)
		return protocol.WriteError(conn, "unknown binary opcode")
	}
}

// logEngineError logs err alongside the structured code and details carried
// by pkg/errors's typed errors, rather than just its formatted message.
func logEngineError(log *zap.SugaredLogger, msg string, err error) {
	log.Warnw(msg, "error", err, "errorCode", errors.GetErrorCode(err), "errorDetails", errors.GetErrorDetails(err))
}
