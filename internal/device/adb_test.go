package device

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdb speaks just enough of the adb server protocol to exercise the
// client: OKAY/FAIL framing, host: queries, and exec: streams.
type fakeAdb struct {
	ln net.Listener

	mu    sync.Mutex
	execs []string
}

func newFakeAdb(t *testing.T) *fakeAdb {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeAdb{ln: ln}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeAdb) addr() string { return f.ln.Addr().String() }

func (f *fakeAdb) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.execs...)
}

func (f *fakeAdb) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func readRequest(conn net.Conn) (string, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(conn, lenBuf); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(string(lenBuf), 16, 32)
	if err != nil {
		return "", err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return "", err
	}
	return string(payload), nil
}

func writePayload(conn net.Conn, payload string) {
	fmt.Fprintf(conn, "%04x%s", len(payload), payload)
}

func (f *fakeAdb) handle(conn net.Conn) {
	defer conn.Close()

	req, err := readRequest(conn)
	if err != nil {
		return
	}

	switch req {
	case "host:version":
		conn.Write([]byte("OKAY"))
		writePayload(conn, "0029")
	case "host:devices":
		conn.Write([]byte("OKAY"))
		writePayload(conn, "emulator-5554\tdevice\noffline-0001\toffline\n")
	case "host:transport:emulator-5554":
		conn.Write([]byte("OKAY"))
		cmd, err := readRequest(conn)
		if err != nil {
			return
		}
		conn.Write([]byte("OKAY"))

		f.mu.Lock()
		f.execs = append(f.execs, cmd)
		f.mu.Unlock()

		switch cmd {
		case "exec:wm size":
			conn.Write([]byte("Physical size: 1080x2340\n"))
		case "exec:screencap -p":
			conn.Write(append([]byte{0x89, 'P', 'N', 'G'}, []byte("fakepixels")...))
		}
		// input commands produce no output
	default:
		conn.Write([]byte("FAIL"))
		writePayload(conn, "unknown service "+req)
	}
}

func TestClientVersionAndDevices(t *testing.T) {
	f := newFakeAdb(t)
	c := NewClient(f.addr())
	ctx := context.Background()

	v, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0029", v)

	serials, err := c.Devices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"emulator-5554"}, serials, "offline devices must be filtered out")
}

func TestDeviceResolvesFirstSerialAndScreenSize(t *testing.T) {
	f := newFakeAdb(t)
	c := NewClient(f.addr())

	d, err := c.Device(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "emulator-5554", d.Serial)

	w, h := d.ScreenSize()
	assert.Equal(t, 1080, w)
	assert.Equal(t, 2340, h)
}

func TestScreencapReturnsPNG(t *testing.T) {
	f := newFakeAdb(t)
	c := NewClient(f.addr())

	d, err := c.Device(context.Background(), "")
	require.NoError(t, err)

	img, err := d.Screencap(context.Background())
	require.NoError(t, err)
	assert.True(t, len(img) > 4)
	assert.Equal(t, pngMagic, img[:4])
}

func TestTapClampsToScreen(t *testing.T) {
	f := newFakeAdb(t)
	c := NewClient(f.addr())

	d, err := c.Device(context.Background(), "")
	require.NoError(t, err)

	require.NoError(t, d.Tap(context.Background(), -50, 99999))

	execs := f.recorded()
	assert.Contains(t, execs, "exec:input tap 0 2339")
}

func TestClientUnreachableServer(t *testing.T) {
	c := NewClient("127.0.0.1:1") // nothing listens here
	_, err := c.Version(context.Background())
	assert.Error(t, err)
}

func TestEscapeInputText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", "'hello'"},
		{"hello world", "'hello%sworld'"},
		{"it's me", `'it'\''s%sme'`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeInputText(tt.in), "input %q", tt.in)
	}
}
