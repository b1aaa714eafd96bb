package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

func startServer(t *testing.T, ctx context.Context, port int) Server {
	t.Helper()
	t.Setenv("SINGLEINSTANCE_PORT_START", strconv.Itoa(port))
	t.Setenv("SINGLEINSTANCE_PORT_END", strconv.Itoa(port))
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestServerClientRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx, 49671)

	tests := []struct {
		cmd     Command
		reply   func(Conn) error
		state   string
		wantErr string
	}{
		{CmdToggle, func(c Conn) error { return c.RespondOK("recording") }, "recording", ""},
		{CmdStatus, func(c Conn) error { return c.RespondOK("paused") }, "paused", ""},
		{CmdStop, func(c Conn) error { return c.RespondError("not recording\nreally") }, "", "not recording really"},
	}
	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			type result struct {
				delegated bool
				state     string
				err       error
			}
			done := make(chan result, 1)
			go func() {
				d, s, err := NewClient().Send(ctx, tt.cmd)
				done <- result{d, s, err}
			}()

			conn, err := srv.Next(ctx)
			if err != nil {
				t.Fatalf("next: %v", err)
			}
			if conn.Request().Command != tt.cmd {
				t.Errorf("command %q, want %q", conn.Request().Command, tt.cmd)
			}
			if err := tt.reply(conn); err != nil {
				t.Fatalf("respond: %v", err)
			}
			_ = conn.Close()

			res := <-done
			if !res.delegated {
				t.Fatal("expected delegation")
			}
			if tt.wantErr != "" {
				if res.err == nil || res.err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", res.err, tt.wantErr)
				}
				return
			}
			if res.err != nil || res.state != tt.state {
				t.Fatalf("state = %q, err = %v; want %q", res.state, res.err, tt.state)
			}
		})
	}
}

func TestUnknownCommandRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx, 49672)

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(residentHost, strconv.Itoa(srv.Port())), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))
	if _, err := conn.Write([]byte("REWIND\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(line, "ERROR ") {
		t.Fatalf("reply %q, want ERROR", line)
	}
}

func TestDetectResidentPort(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx, 49673)

	port, ok := DetectResidentPort(ctx)
	if !ok || port != srv.Port() {
		t.Fatalf("DetectResidentPort = %d,%v; want %d,true", port, ok, srv.Port())
	}
}

func TestNoResident(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "49674")
	t.Setenv("SINGLEINSTANCE_PORT_END", "49674")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	delegated, _, err := NewClient().Send(ctx, CmdToggle)
	if delegated || err != nil {
		t.Fatalf("Send = %v, %v; want no delegation", delegated, err)
	}
}

func TestNextAfterClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx, 49675)
	_ = srv.Close()
	_ = srv.Close()
	if _, err := srv.Next(ctx); err == nil {
		t.Fatal("expected error from Next after Close")
	}
}

func TestParseCommand(t *testing.T) {
	for in, want := range map[string]Command{"toggle\n": CmdToggle, "Stop": CmdStop, " CANCEL ": CmdCancel, "status": CmdStatus} {
		got, err := ParseCommand(in)
		if err != nil || got != want {
			t.Errorf("ParseCommand(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseCommand("PING"); err == nil {
		t.Error("expected error for PING")
	}
}

func TestPortRangeClamp(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "80")
	t.Setenv("SINGLEINSTANCE_PORT_END", "70000")
	start, end := getPortRange()
	if start != 1024 || end != 65535 {
		t.Fatalf("range %d-%d", start, end)
	}
}

func TestClientFindsResidentPastClosedPorts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx, 49677)
	// Widen the range after Start so the server keeps its port.
	t.Setenv("SINGLEINSTANCE_PORT_START", "49676")

	if port, ok := DetectResidentPort(ctx); !ok || port != srv.Port() {
		t.Fatalf("DetectResidentPort = %d,%v; want %d,true", port, ok, srv.Port())
	}

	done := make(chan string, 1)
	go func() {
		_, state, _ := NewClient().Send(ctx, CmdStatus)
		done <- state
	}()
	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	_ = conn.RespondOK("idle")
	_ = conn.Close()
	if got := <-done; got != "idle" {
		t.Fatalf("state %q, want idle", got)
	}
}

func TestPortRangeDefaults(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "")
	t.Setenv("SINGLEINSTANCE_PORT_END", "not-a-port")
	start, end := getPortRange()
	if start != 49600 || end != 49650 {
		t.Fatalf("range %d-%d, want 49600-49650", start, end)
	}
}

func TestPortRangeReversedAfterClamp(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "5000")
	t.Setenv("SINGLEINSTANCE_PORT_END", "100")
	start, end := PortRange()
	if start != 1024 || end != 5000 {
		t.Fatalf("range %d-%d, want 1024-5000", start, end)
	}
}
