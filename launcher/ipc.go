// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package launcher implements the client side of the launcher IPC
// protocol (a single named-pipe transaction carrying a command letter
// plus packed argv) and the registry-backed service record schema the
// launcher reads to start instances.
package launcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/Microsoft/go-winio"
)

// PipeName is the well-known name of the launcher's message pipe.
const PipeName = `\\.\pipe\gofsprt-launcher`

// MaxPipeBuffer bounds the combined command + argv encoding, per spec.md
// §4.L ("Total ≤ 4 KiB").
const MaxPipeBuffer = 4096

// Command letters, matching the single-WCHAR command byte the reference
// launcher protocol uses to select a verb.
const (
	cmdStart           = 'S'
	cmdStartWithSecret = 'X'
	cmdStop            = 'T'
	cmdGetInfo         = 'I'
	cmdGetNameList     = 'L'
	cmdQuit            = 'Q'
)

const (
	replySuccess = '$'
	replyFailure = '!'
)

// Client talks to a running launcher service over its named pipe.
type Client struct {
	pipeName string
	timeout  time.Duration
}

// NewClient returns a Client for the launcher listening on pipeName (pass
// "" to use PipeName), waiting up to timeout for the pipe to become
// available before each call.
func NewClient(pipeName string, timeout time.Duration) *Client {
	if pipeName == "" {
		pipeName = PipeName
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{pipeName: pipeName, timeout: timeout}
}

// Start asks the launcher to start a new instance of className named
// instanceName with the given arguments.
func (c *Client) Start(ctx context.Context, className, instanceName string, args []string) (string, error) {
	return c.call(ctx, encodeCommand(cmdStart, className, instanceName, args))
}

// StartWithSecret is like Start but appends secret as the final argument,
// matching the reference protocol's separate command letter for passing
// a secret without it showing up in an ordinary argument list dump.
func (c *Client) StartWithSecret(ctx context.Context, className, instanceName string, args []string, secret string) (string, error) {
	return c.call(ctx, encodeCommand(cmdStartWithSecret, className, instanceName, append(append([]string{}, args...), secret)))
}

// Stop asks the launcher to stop the named instance.
func (c *Client) Stop(ctx context.Context, className, instanceName string) error {
	_, err := c.call(ctx, encodeCommand(cmdStop, className, instanceName, nil))
	return err
}

// Info returns the launcher's status report for the named instance.
func (c *Client) Info(ctx context.Context, className, instanceName string) (string, error) {
	return c.call(ctx, encodeCommand(cmdGetInfo, className, instanceName, nil))
}

// List returns the launcher's list of running instance names.
func (c *Client) List(ctx context.Context) ([]string, error) {
	reply, err := c.call(ctx, []uint16{cmdGetNameList})
	if err != nil {
		return nil, err
	}
	if reply == "" {
		return nil, nil
	}
	return strings.Split(reply, "\n"), nil
}

// encodeCommand packs `[command-letter][arg1\0][arg2\0]…` as UTF-16 code
// units, the wire layout start/stop/getinfo share in the reference
// protocol.
func encodeCommand(letter uint16, className, instanceName string, extra []string) []uint16 {
	buf := []uint16{letter}
	for _, s := range append([]string{className, instanceName}, extra...) {
		buf = append(buf, utf16.Encode([]rune(s))...)
		buf = append(buf, 0)
	}
	return buf
}

// call performs the single TransactNamedPipe-equivalent round trip: it
// asserts the pipe owner's identity, sends the encoded command, and
// parses the `$`/`!`-prefixed reply.
func (c *Client) call(ctx context.Context, command []uint16) (string, error) {
	if len(command)*2 > MaxPipeBuffer {
		return "", fmt.Errorf("launcher: command exceeds %d bytes", MaxPipeBuffer)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := winio.DialPipeContext(dialCtx, c.pipeName)
	if err != nil {
		return "", fmt.Errorf("launcher: dial %s: %w", c.pipeName, err)
	}
	defer conn.Close()

	if err := assertLocalSystemOwner(conn); err != nil {
		return "", err
	}

	payload := make([]byte, len(command)*2)
	for i, u := range command {
		payload[2*i] = byte(u)
		payload[2*i+1] = byte(u >> 8)
	}
	if _, err := conn.Write(payload); err != nil {
		return "", fmt.Errorf("launcher: write: %w", err)
	}

	reply := make([]byte, MaxPipeBuffer)
	n, err := conn.Read(reply)
	if err != nil {
		return "", fmt.Errorf("launcher: read: %w", err)
	}
	reply = reply[:n]

	return parseReply(reply)
}

func parseReply(reply []byte) (string, error) {
	if len(reply) < 2 {
		return "", fmt.Errorf("launcher: empty reply")
	}

	status := uint16(reply[0]) | uint16(reply[1])<<8
	rest := decodeUTF16Units(reply[2:])

	switch status {
	case replySuccess:
		return rest, nil
	case replyFailure:
		code, convErr := strconv.Atoi(strings.TrimRight(rest, "\x00"))
		if convErr != nil {
			return "", fmt.Errorf("launcher: failure reply with unparseable code %q", rest)
		}
		return "", fmt.Errorf("launcher: error %d", code)
	default:
		return "", fmt.Errorf("launcher: corrupted reply (status %q)", string(rune(status)))
	}
}

func decodeUTF16Units(b []byte) string {
	u16 := make([]uint16, len(b)/2)
	for i := range u16 {
		u16[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(u16))
}
