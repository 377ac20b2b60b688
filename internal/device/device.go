package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"

	"matchbot/internal/types"
)

// Fallback dimensions when wm size cannot be parsed. Matches the most common
// portrait phone resolution.
const (
	fallbackWidth  = 1080
	fallbackHeight = 1920
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

// Device is one connected Android device, addressed by serial.
type Device struct {
	client *Client
	Serial string

	width  int
	height int
}

// exec runs a shell command through the exec: service, which gives raw
// (non-pty) output — required so screencap's PNG bytes arrive unmangled.
func (d *Device) exec(ctx context.Context, cmd string) ([]byte, error) {
	conn, err := d.client.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := send(conn, "host:transport:"+d.Serial); err != nil {
		return nil, fmt.Errorf("failed to select device %s: %w", d.Serial, err)
	}
	if err := send(conn, "exec:"+cmd); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", cmd, err)
	}

	out, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read output of %q: %w", cmd, err)
	}
	return out, nil
}

func (d *Device) loadScreenSize(ctx context.Context) error {
	out, err := d.exec(ctx, "wm size")
	if err != nil {
		return err
	}

	// Expected: "Physical size: 1080x2340" (an Override line may follow).
	re := regexp.MustCompile(`(?:Override|Physical) size:\s*(\d+)x(\d+)`)
	matches := re.FindAllStringSubmatch(string(out), -1)
	if len(matches) == 0 {
		log.Printf("Could not parse screen size from %q, using %dx%d", strings.TrimSpace(string(out)), fallbackWidth, fallbackHeight)
		d.width, d.height = fallbackWidth, fallbackHeight
		return nil
	}

	// Prefer the last match: an Override size supersedes the physical one.
	m := matches[len(matches)-1]
	d.width, _ = strconv.Atoi(m[1])
	d.height, _ = strconv.Atoi(m[2])
	log.Printf("Device %s screen: %dx%d", d.Serial, d.width, d.height)
	return nil
}

// ScreenSize returns the device's screen dimensions in pixels.
func (d *Device) ScreenSize() (width, height int) {
	return d.width, d.height
}

// Screencap captures the current screen as PNG bytes.
func (d *Device) Screencap(ctx context.Context) ([]byte, error) {
	out, err := d.exec(ctx, "screencap -p")
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: screencap returned empty image", types.ErrCapture)
	}
	if !bytes.HasPrefix(out, pngMagic) {
		return nil, fmt.Errorf("%w: screencap returned non-PNG data (%d bytes)", types.ErrCapture, len(out))
	}
	return out, nil
}

// Tap sends a tap at the given coordinates, clamped to the screen.
func (d *Device) Tap(ctx context.Context, x, y int) error {
	x, y = d.clamp(x, y)
	if _, err := d.exec(ctx, fmt.Sprintf("input tap %d %d", x, y)); err != nil {
		return fmt.Errorf("failed to tap (%d, %d): %w", x, y, err)
	}
	return nil
}

// Swipe drags from one point to another over durationMs milliseconds.
func (d *Device) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	x1, y1 = d.clamp(x1, y1)
	x2, y2 = d.clamp(x2, y2)
	cmd := fmt.Sprintf("input swipe %d %d %d %d %d", x1, y1, x2, y2, durationMs)
	if _, err := d.exec(ctx, cmd); err != nil {
		return fmt.Errorf("failed to swipe: %w", err)
	}
	return nil
}

// TypeText enters text through the on-screen keyboard's input stream.
func (d *Device) TypeText(ctx context.Context, text string) error {
	if _, err := d.exec(ctx, "input text "+escapeInputText(text)); err != nil {
		return fmt.Errorf("failed to type text: %w", err)
	}
	return nil
}

// KeyEvent presses a key by Android keycode name, e.g. "KEYCODE_BACK".
func (d *Device) KeyEvent(ctx context.Context, keycode string) error {
	if _, err := d.exec(ctx, "input keyevent "+keycode); err != nil {
		return fmt.Errorf("failed to press %s: %w", keycode, err)
	}
	return nil
}

func (d *Device) clamp(x, y int) (int, int) {
	return clampInt(x, 0, d.width-1), clampInt(y, 0, d.height-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// escapeInputText quotes text for `input text`. The input command treats %s
// as a space and the string passes through a shell, so spaces and shell
// metacharacters need escaping.
func escapeInputText(text string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range text {
		switch r {
		case ' ':
			sb.WriteString("%s")
		case '\'':
			sb.WriteString(`'\''`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
