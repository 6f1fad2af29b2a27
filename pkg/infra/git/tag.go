package git

import (
	"context"
	"os/exec"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultCommand is the git executable looked up in PATH
const DefaultCommand = "git"

// TagSource reads tags of a local git repository
type TagSource struct {
	command string
	dir     string
}

// NewTagSource creates a TagSource running command (default "git") in dir (default: working directory)
func NewTagSource(command, dir string) *TagSource {
	if command == "" {
		command = DefaultCommand
	}
	return &TagSource{command: command, dir: dir}
}

// LatestTag returns the last tag listed by `git tag`
func (s *TagSource) LatestTag(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, s.command, "tag")
	cmd.Dir = s.dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", goerr.Wrap(err, "failed to list git tags",
			goerr.V("dir", s.dir),
			goerr.V("output", strings.TrimSpace(string(out))))
	}

	tags := strings.Fields(string(out))
	if len(tags) == 0 {
		return "", goerr.New("no git tag found", goerr.V("dir", s.dir))
	}

	return tags[len(tags)-1], nil
}
