package curl

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultCommand is the external download tool looked up in PATH
const DefaultCommand = "curl"

// Curl downloads files by running curl with resume and retry enabled
type Curl struct {
	command string
}

// New creates a curl transport. An empty command means DefaultCommand.
func New(command string) *Curl {
	if command == "" {
		command = DefaultCommand
	}
	return &Curl{command: command}
}

// Args builds the argument vector for downloading url into dst
func Args(url, dst string, progress bool) []string {
	args := []string{"-#"}
	if !progress {
		args = append(args, "-sS")
	}
	return append(args, "-L", url, "-o", dst, "--retry", "9", "-C", "-")
}

// Download runs curl and fails on a non-zero exit status
func (c *Curl) Download(ctx context.Context, url, dst string, progress bool) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return goerr.Wrap(err, "failed to create parent directory", goerr.V("path", dst))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command, Args(url, dst, progress)...)
	cmd.Stderr = &stderr
	if progress {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		return goerr.Wrap(err, "external download failed",
			goerr.V("command", c.command),
			goerr.V("url", url),
			goerr.V("stderr", strings.TrimSpace(stderr.String())))
	}

	return nil
}
