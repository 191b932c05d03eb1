package config

import (
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jabl/fancyquota/internal/filesystem"
	"github.com/jabl/fancyquota/internal/gateway"
	"github.com/jabl/fancyquota/internal/identity"
	"github.com/jabl/fancyquota/internal/mount"
	"github.com/jabl/fancyquota/internal/quota"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/zeebo/errs"
)

const (
	DefaultLogLevel   string = "warn"
	DefaultGatewayURL string = "http://127.0.0.1"

	// SystemFile is read first, then the per-user file, then FileName in the working directory.
	SystemFile string = "/etc/fancyquota.toml"
	FileName   string = "fancyquota.toml"

	envXDGConfigHome string = "XDG_CONFIG_HOME"
)

var Error = errs.Class("config")

type Config struct {
	ConfigFile   string
	LogLevel     string
	MountsPath   string
	QuotaCommand string
	MetricsFile  string
	PrintVersion bool
	// Files are the config files Load read, in the order they were applied.
	Files []string

	Visit   VisitConfig
	Gateway GatewayConfig
	Filter  FilterConfig

	// Collaborators below default to the real system when nil or zero.
	Filesystem filesystem.Filesystem
	Identity   identity.Directory
	Stdout     io.Writer
	// Width overrides the detected console width.
	Width int
}

type VisitConfig struct {
	// Envs name environment variables holding directories to visit.
	Envs []string
	Dirs []string
}

// Targets returns the directories named by Envs followed by Dirs.
func (v VisitConfig) Targets() []string {
	dirs := lo.FilterMap(v.Envs, func(env string, _ int) (string, bool) {
		d := os.Getenv(strings.TrimSpace(env))
		return d, d != ""
	})
	return append(dirs, lo.Compact(v.Dirs)...)
}

type GatewayConfig struct {
	URL string
	// Dirs are the directories whose NFS mounts the gateway knows about.
	Dirs    []string
	Timeout time.Duration
}

// Enabled reports whether any mount is to be looked up through the gateway.
func (g GatewayConfig) Enabled() bool {
	return len(g.Dirs) > 0
}

type FilterConfig struct {
	// Groups are hidden from unprivileged users.
	Groups []string
}

// fileConfig is the TOML representation. Files are decoded on top of each
// other, so a later file overrides the keys it sets.
type fileConfig struct {
	Visit struct {
		Envs []string `toml:"envs"`
		Dirs []string `toml:"dirs"`
	} `toml:"visit"`
	Gateway struct {
		URL     string   `toml:"url"`
		Dirs    []string `toml:"dirs"`
		Timeout duration `toml:"timeout"`
	} `toml:"gateway"`
	Filter struct {
		Groups []string `toml:"groups"`
	} `toml:"filter"`
}

// duration is a wrapper around time.Duration to support TOML string decoding
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// BindFlags registers the command line flags writing into c.
func BindFlags(flagSet *pflag.FlagSet, c *Config) {
	flagSet.StringVar(&c.ConfigFile, "config", "", "Read only this config file instead of the default locations")
	flagSet.StringVar(&c.LogLevel, "log-level", DefaultLogLevel, "Logging level: panic, fatal, error, warn, warning, info, debug or trace")
	flagSet.StringVar(&c.MountsPath, "mounts", mount.DefaultMountsPath, "Mount table to read")
	flagSet.StringVar(&c.QuotaCommand, "quota-cmd", quota.DefaultCommandPath, "quota(1) binary")
	flagSet.StringVar(&c.MetricsFile, "metrics-file", "", "Also write the report as Prometheus metrics to this textfile")
	flagSet.BoolVar(&c.PrintVersion, "version", false, "Print the version and exit.")
}

// Load merges the config files into c and validates the result. With
// c.ConfigFile set only that file is read and it has to exist.
func Load(c Config) (Config, error) {
	fc := fileConfig{}
	fc.Gateway.URL = DefaultGatewayURL
	fc.Gateway.Timeout = duration{gateway.DefaultTimeout}

	c.Files = nil
	if c.ConfigFile != "" {
		if _, err := toml.DecodeFile(c.ConfigFile, &fc); err != nil {
			return c, Error.New("%s: %v", c.ConfigFile, err)
		}
		c.Files = append(c.Files, c.ConfigFile)
	} else {
		for _, path := range SearchPaths() {
			if _, err := toml.DecodeFile(path, &fc); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return c, Error.New("%s: %v", path, err)
			}
			c.Files = append(c.Files, path)
		}
	}

	c.Visit = VisitConfig{Envs: fc.Visit.Envs, Dirs: fc.Visit.Dirs}
	c.Gateway = GatewayConfig{URL: fc.Gateway.URL, Dirs: lo.Compact(fc.Gateway.Dirs), Timeout: fc.Gateway.Timeout.Duration}
	c.Filter = FilterConfig{Groups: fc.Filter.Groups}
	return c, validate(c)
}

// SearchPaths lists the config files read, lowest priority first.
func SearchPaths() []string {
	paths := []string{SystemFile}
	if home := os.Getenv(envXDGConfigHome); home != "" {
		paths = append(paths, filepath.Join(home, FileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", FileName))
	}
	return append(paths, FileName)
}

func validate(c Config) error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return Error.Wrap(err)
	}
	if c.Gateway.Enabled() {
		u, err := url.Parse(c.Gateway.URL)
		if err != nil {
			return Error.Wrap(err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return Error.New("gateway url %q: scheme must be http or https", c.Gateway.URL)
		}
	}
	if c.Gateway.Timeout < 0 {
		return Error.New("gateway timeout %s is negative", c.Gateway.Timeout)
	}
	return nil
}
