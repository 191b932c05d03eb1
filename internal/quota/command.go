package quota

import (
	"context"
	"errors"
	"io"
	"os/exec"

	"github.com/jabl/fancyquota/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs"
)

const DefaultCommandPath = "/usr/bin/quota"

// DefaultCommandArgs asks for user and group quotas (-ug), no line wrapping
// of long filesystem names (-w) and raw epoch grace times (-p).
var DefaultCommandArgs = []string{"-ugwp"}

// ErrCommand is returned when the quota command cannot be run or read.
var ErrCommand = errs.Class("quota command")

// Command runs the system quota tool and parses its standard output.
type Command struct {
	Path string
	Args []string
	log  *logrus.Entry
}

func NewCommand(path string, l *logrus.Entry, args ...string) *Command {
	if path == "" {
		path = DefaultCommandPath
	}
	if len(args) == 0 {
		args = DefaultCommandArgs
	}
	return &Command{Path: path, Args: args, log: l}
}

// Run executes the command and parses its output. The returned error is
// ErrCommand when the process could not be started or read, otherwise any
// ErrMalformed from Parse alongside the blocks that parsed.
func (c *Command) Run(ctx context.Context, res Resolver) ([]Block, error) {
	log := logger.WithRunContext(ctx, c.log).WithFields(logrus.Fields{logger.CommandKey: c.Path, logger.CommandArgsKey: c.Args})
	log.Debug("executing command")

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	// stderr stays nil, which the os/exec package connects to the null device
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, ErrCommand.Wrap(err)
	}
	if err := cmd.Start(); err != nil {
		return nil, ErrCommand.Wrap(err)
	}

	blocks, parseErr := Parse(stdout, res, log)
	// drain whatever the parser left so the process never blocks on a full pipe
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return blocks, errs.Combine(parseErr, ErrCommand.Wrap(ctx.Err()))
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return blocks, errs.Combine(parseErr, ErrCommand.Wrap(err))
		}
		// quota exits non-zero when a limit is exceeded
		log.WithField("exit_code", exitErr.ExitCode()).Debug("quota command exited with non-zero status")
	}
	return blocks, parseErr
}
