// Package viewer hands local files to the platform's default application.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// ErrUnsupported means no application could open the file.
var ErrUnsupported = errors.New("no application available to open file")

const openTimeout = 10 * time.Second

// Opener runs an external command with the file path as its last argument.
type Opener struct {
	name string
	args []string
}

// New returns the opener for the current platform.
func New() *Opener {
	switch runtime.GOOS {
	case "darwin":
		return NewCommand("open")
	case "windows":
		return NewCommand("rundll32", "url.dll,FileProtocolHandler")
	default:
		return NewCommand("xdg-open")
	}
}

// NewCommand returns an opener running name with args followed by the path.
func NewCommand(name string, args ...string) *Opener {
	return &Opener{name: name, args: args}
}

// Command returns the program this opener runs.
func (o *Opener) Command() string {
	return o.name
}

// Open launches the default application for path and waits for the launcher
// to exit. A missing launcher or a non-zero exit wraps ErrUnsupported.
func (o *Opener) Open(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	args := append(append([]string(nil), o.args...), path)
	out, err := exec.CommandContext(ctx, o.name, args...).CombinedOutput()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("open %s: %w", path, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %s not found", ErrUnsupported, o.name)
	case errors.As(err, &exitErr):
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = exitErr.String()
		}
		return fmt.Errorf("%w: %s", ErrUnsupported, msg)
	default:
		return fmt.Errorf("open %s: %w", path, err)
	}
}
