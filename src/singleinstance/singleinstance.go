package singleinstance

// This file defines the API for single-instance ownership and remote control
// of the resident recorder.

import (
	"context"
	"fmt"
	"strings"
)

// Command is a remote control request.
type Command string

const (
	CmdToggle Command = "TOGGLE"
	CmdStop   Command = "STOP"
	CmdCancel Command = "CANCEL"
	CmdStatus Command = "STATUS"
)

// ParseCommand accepts a command name in any case.
func ParseCommand(s string) (Command, error) {
	switch c := Command(strings.ToUpper(strings.TrimSpace(s))); c {
	case CmdToggle, CmdStop, CmdCancel, CmdStatus:
		return c, nil
	}
	return "", fmt.Errorf("unknown command %q", s)
}

// Server owns the TCP endpoint and answers control requests.
type Server interface {
	// Start begins listening on the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondOK reports success with the recorder state after the command.
	RespondOK(state string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Request represents a single control request.
type Request struct {
	Command Command
}

// Client delegates a command to a resident server.
type Client interface {
	// Send scans the port range, performs the handshake and delegates cmd.
	// If no resident is found, returns delegated=false, err=nil.
	Send(ctx context.Context, cmd Command) (delegated bool, state string, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTcpClient() }
