package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
)

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	lis      net.Listener
	incoming chan *tcpConn
	done     chan struct{}
	once     sync.Once
	port     int
	log      *slog.Logger
}

func newTcpServer() Server {
	return &tcpServer{
		incoming: make(chan *tcpConn, 8),
		done:     make(chan struct{}),
		log:      slog.Default().With("component", "singleinstance"),
	}
}

// Start binds ONLY the start port of the configured range. If occupied, fail.
func (s *tcpServer) Start(ctx context.Context) error {
	if s.lis != nil {
		return nil
	}
	start, _ := getPortRange()
	addr := fmt.Sprintf("%s:%d", residentHost, start)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Warn("failed to bind", "addr", addr, "err", err)
		return err
	}
	s.lis = lis
	s.port = start
	s.log.Info("listening", "addr", addr)
	go s.acceptLoop(ctx)
	return nil
}

// Port returns the bound port (0 if not started).
func (s *tcpServer) Port() int { return s.port }

func (s *tcpServer) acceptLoop(ctx context.Context) {
	for {
		c, err := s.lis.Accept()
		if err != nil {
			return
		}
		remote := c.RemoteAddr().String()
		_ = c.SetDeadline(time.Now().Add(3 * time.Second))
		br := bufio.NewReader(c)
		line, _ := br.ReadString('\n')
		bw := bufio.NewWriter(c)
		if line == pingRequest {
			s.log.Debug("PING -> PONG", "remote", remote)
			_, _ = bw.WriteString(pongResponse)
			_ = bw.Flush()
			_ = c.Close()
			continue
		}

		tc := &tcpConn{c: c, w: bw}
		cmd, err := ParseCommand(line)
		if err != nil {
			s.log.Warn("rejected request", "remote", remote, "err", err)
			_ = tc.RespondError(err.Error())
			_ = c.Close()
			continue
		}
		s.log.Info("request", "remote", remote, "command", string(cmd))
		tc.r = Request{Command: cmd}
		select {
		case s.incoming <- tc:
		case <-s.done:
			_ = c.Close()
			return
		case <-ctx.Done():
			_ = c.Close()
			return
		}
	}
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, net.ErrClosed
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.lis != nil {
			_ = s.lis.Close()
		}
	})
	return nil
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondOK(state string) error {
	return tc.reply("OK " + state)
}

func (tc *tcpConn) RespondError(msg string) error {
	return tc.reply("ERROR " + strings.ReplaceAll(msg, "\n", " "))
}

func (tc *tcpConn) reply(line string) error {
	_ = tc.c.SetDeadline(time.Now().Add(3 * time.Second))
	if _, err := tc.w.WriteString(line + "\n"); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
