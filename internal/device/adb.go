// Package device drives an Android device through the adb server's wire
// protocol: length-prefixed requests over TCP with OKAY/FAIL framing, and
// exec: streams for shell commands. No adb binary is required beyond the
// server itself.
package device

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"matchbot/internal/types"
)

// Client talks to a running adb server.
type Client struct {
	addr        string
	dialTimeout time.Duration
}

// NewClient creates a client for the adb server at addr (host:port).
func NewClient(addr string) *Client {
	return &Client{
		addr:        addr,
		dialTimeout: 10 * time.Second,
	}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: adb server unreachable at %s: %v", types.ErrCapture, c.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	return conn, nil
}

// send writes one length-prefixed request and checks the 4-byte status.
func send(conn net.Conn, req string) error {
	if _, err := fmt.Fprintf(conn, "%04x%s", len(req), req); err != nil {
		return fmt.Errorf("failed to send %q: %w", req, err)
	}
	status := make([]byte, 4)
	if _, err := io.ReadFull(conn, status); err != nil {
		return fmt.Errorf("failed to read status for %q: %w", req, err)
	}
	switch string(status) {
	case "OKAY":
		return nil
	case "FAIL":
		msg, _ := readPayload(conn)
		return fmt.Errorf("adb rejected %q: %s", req, msg)
	default:
		return fmt.Errorf("unexpected adb status %q for %q", status, req)
	}
}

// readPayload reads one hex-length-prefixed response payload.
func readPayload(conn net.Conn) (string, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(conn, lenBuf); err != nil {
		return "", fmt.Errorf("failed to read payload length: %w", err)
	}
	n, err := strconv.ParseUint(string(lenBuf), 16, 32)
	if err != nil {
		return "", fmt.Errorf("malformed payload length %q: %w", lenBuf, err)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}
	return string(payload), nil
}

// hostQuery runs a single host: service request and returns its payload.
func (c *Client) hostQuery(ctx context.Context, req string) (string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := send(conn, req); err != nil {
		return "", err
	}
	return readPayload(conn)
}

// Version returns the adb server's protocol version. Useful as a liveness probe.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.hostQuery(ctx, "host:version")
}

// Devices lists the serials of connected devices in "device" state.
func (c *Client) Devices(ctx context.Context) ([]string, error) {
	payload, err := c.hostQuery(ctx, "host:devices")
	if err != nil {
		return nil, err
	}

	var serials []string
	for _, line := range strings.Split(payload, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials, nil
}

// Device resolves a target device. An empty serial picks the first device
// listed, matching the adb CLI's convention.
func (c *Client) Device(ctx context.Context, serial string) (*Device, error) {
	if serial == "" {
		serials, err := c.Devices(ctx)
		if err != nil {
			return nil, err
		}
		if len(serials) == 0 {
			return nil, fmt.Errorf("%w: no devices connected (check USB debugging and authorization)", types.ErrCapture)
		}
		serial = serials[0]
	}

	d := &Device{client: c, Serial: serial}
	if err := d.loadScreenSize(ctx); err != nil {
		return nil, err
	}
	return d, nil
}
