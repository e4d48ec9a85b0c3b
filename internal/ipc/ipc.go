// Package ipc is the local control plane: one JSON request and one JSON
// reply per unix socket connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"
)

const (
	DefaultSocket = "/tmp/opencode.sock"

	CmdTrigger  = "trigger"
	CmdSay      = "say"
	CmdStatus   = "status"
	CmdShutdown = "shutdown"

	ioTimeout = 30 * time.Second
)

type Request struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type Reply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Handler func(ctx context.Context, req Request) Reply

type Server struct {
	path    string
	ln      net.Listener
	handler Handler

	wg   sync.WaitGroup
	once sync.Once
}

// Listen binds the socket, replacing a stale one left by a crashed daemon.
func Listen(path string, handler Handler) (*Server, error) {
	if path == "" {
		path = DefaultSocket
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	return &Server{path: path, ln: ln, handler: handler}, nil
}

// Serve accepts connections until ctx is done or the server is closed.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			log.Warn("Control accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ln.Close()
		os.Remove(s.path)
	})
	return err
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(ioTimeout))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("Bad control request", "err", err)
		json.NewEncoder(conn).Encode(Reply{Message: "malformed request"})
		return
	}

	log.Info("Control command", "cmd", req.Cmd)

	reply := s.handler(ctx, req)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Warn("Control reply failed", "err", err)
	}
}

// Send delivers one request and waits for the reply.
func Send(ctx context.Context, path string, req Request) (Reply, error) {
	if path == "" {
		path = DefaultSocket
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Reply{}, fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}

	return reply, nil
}
