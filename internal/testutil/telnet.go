package testutil

import (
	"net"
	"strings"
	"testing"
	"time"
)

// TelnetClient drives the vault's Telnet surface in tests: it dials the
// acceptor, sends command lines, and scans the replies for expected text.
//
// Reads are buffered across ReadUntil calls. Only the data up to and
// including a matched substring is consumed, so back-to-back prompts
// ("Created Bryn" followed by "Opened Bryn") are matched in order even when
// the server delivers them in one write.
type TelnetClient struct {
	conn   net.Conn
	buffer string
	t      *testing.T
}

// NewTelnetClient dials addr and returns a connected client. The connection
// is closed on test cleanup.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("dialing vault at %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })

	return &TelnetClient{conn: conn, t: t}
}

// ReadUntil reads server output until substr appears or timeout elapses,
// returning everything up to and including the match. Unmatched trailing
// output stays buffered for the next call. Fails the test on timeout.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()

	if out, ok := c.consume(substr); ok {
		return out
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	tmp := make([]byte, 4096)
	for {
		n, err := c.conn.Read(tmp)
		if n > 0 {
			c.buffer += string(tmp[:n])
			if out, ok := c.consume(substr); ok {
				return out
			}
		}
		if err != nil {
			c.t.Fatalf("waiting for %q: %v (buffered: %q)", substr, err, c.buffer)
		}
	}
}

func (c *TelnetClient) consume(substr string) (string, bool) {
	idx := strings.Index(c.buffer, substr)
	if idx < 0 {
		return "", false
	}
	end := idx + len(substr)
	out := c.buffer[:end]
	c.buffer = c.buffer[end:]
	return out, true
}

// Send writes one command line, appending the Telnet line ending.
func (c *TelnetClient) Send(line string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		c.t.Fatalf("sending %q: %v", line, err)
	}
}

// Close closes the underlying connection before test cleanup runs.
func (c *TelnetClient) Close() {
	c.conn.Close()
}
