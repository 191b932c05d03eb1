package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs"
)

type contextKey string

const (
	HostKey          string = "host"
	RunIDKey         string = "run_id"
	PrincipalKey     string = "principal"
	PrincipalKindKey string = "principal_kind"
	LoginKey         string = "login"
	UIDKey           string = "uid"
	GIDKey           string = "gid"
	DeviceKey        string = "device"
	MountpointKey    string = "mountpoint"
	FilesystemKey    string = "fs_type"
	CommandKey       string = "cmd"
	CommandArgsKey   string = "cmd_args"
	GatewayURLKey    string = "gateway_url"
	LineKey          string = "line"
	SourceKey        string = "source"
	ConfigFileKey    string = "config_file"
	PathKey          string = "path"

	CtxRunIDKey contextKey = "ctx_run_id"
)

// Error is returned for an unknown log level.
var Error = errs.Class("logger")

// WithRunContext attaches the run ID stored in ctx, if any.
func WithRunContext(ctx context.Context, e *logrus.Entry) *logrus.Entry {
	if v := ContextRunID(ctx); v != "" {
		e = e.WithField(RunIDKey, v)
	}
	return e
}

// ContextWithRunID returns ctx carrying a freshly generated run ID.
func ContextWithRunID(ctx context.Context) context.Context {
	return context.WithValue(ctx, CtxRunIDKey, runID())
}

func ContextRunID(ctx context.Context) string {
	if v, ok := ctx.Value(CtxRunIDKey).(string); ok {
		return v
	}
	return ""
}

// runID generates random run ID string.
// The ID only groups the log lines of one invocation, so it doesn't have to be globally unique.
func runID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

// New returns a logger writing to stderr, keeping stdout free for the report.
func New(logLevel string) (*logrus.Logger, error) {
	return NewWithOutput(logLevel, os.Stderr)
}

func NewWithOutput(logLevel string, w io.Writer) (*logrus.Logger, error) {
	lv, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lv)
	if logger.GetLevel() > logrus.InfoLevel {
		logger.WithField("level", logger.GetLevel().String()).Info("verbose logging enabled, log lines are written to stderr")
	}
	return logger, nil
}

// Discard returns an entry that drops everything, handy for tests and library callers.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
