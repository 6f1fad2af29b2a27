package curl_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/m-mizutani/assetfetch/pkg/infra/curl"
	"github.com/m-mizutani/gt"
)

func TestArgs(t *testing.T) {
	t.Run("silent without progress", func(t *testing.T) {
		args := curl.Args("https://example.com/a.pt", "w/a.pt", false)
		gt.Value(t, args).Equal([]string{
			"-#", "-sS", "-L", "https://example.com/a.pt", "-o", "w/a.pt", "--retry", "9", "-C", "-",
		})
	})

	t.Run("progress bar", func(t *testing.T) {
		args := curl.Args("https://example.com/a.pt", "a.pt", true)
		gt.Value(t, args).Equal([]string{
			"-#", "-L", "https://example.com/a.pt", "-o", "a.pt", "--retry", "9", "-C", "-",
		})
	})

	t.Run("url with shell metacharacters stays one argument", func(t *testing.T) {
		url := `https://example.com/a.pt?x=1&y="$(rm -rf /)"`
		args := curl.Args(url, "a.pt", false)
		gt.Value(t, args[3]).Equal(url)
	})
}

// writeFakeCurl creates an executable that records its arguments and writes the -o target
func writeFakeCurl(t *testing.T, exitCode int) (string, string) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake is not supported on windows")
	}

	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := `#!/bin/sh
printf '%s\n' "$@" > "` + argsFile + `"
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
echo "payload" > "$out"
exit ` + string(rune('0'+exitCode)) + `
`
	bin := filepath.Join(dir, "fake-curl")
	gt.NoError(t, os.WriteFile(bin, []byte(script), 0755))
	return bin, argsFile
}

func TestCurl_Download(t *testing.T) {
	t.Run("passes argument vector", func(t *testing.T) {
		bin, argsFile := writeFakeCurl(t, 0)
		dst := filepath.Join(t.TempDir(), "sub", "model.pt")

		err := curl.New(bin).Download(context.Background(), "https://example.com/model.pt", dst, false)
		gt.NoError(t, err)

		data, err := os.ReadFile(dst)
		gt.NoError(t, err)
		gt.String(t, string(data)).Contains("payload")

		recorded, err := os.ReadFile(argsFile)
		gt.NoError(t, err)
		gt.Value(t, strings.Split(strings.TrimSpace(string(recorded)), "\n")).
			Equal(curl.Args("https://example.com/model.pt", dst, false))
	})

	t.Run("non-zero exit is an error", func(t *testing.T) {
		bin, _ := writeFakeCurl(t, 7)
		dst := filepath.Join(t.TempDir(), "model.pt")

		err := curl.New(bin).Download(context.Background(), "https://example.com/model.pt", dst, false)
		gt.Error(t, err)
	})

	t.Run("missing command is an error", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "model.pt")
		err := curl.New(filepath.Join(t.TempDir(), "no-such-curl")).
			Download(context.Background(), "https://example.com/model.pt", dst, false)
		gt.Error(t, err)
	})
}

func TestNew_DefaultCommand(t *testing.T) {
	gt.Value(t, curl.DefaultCommand).Equal("curl")
	gt.Value(t, curl.New("")).NotNil()
}
