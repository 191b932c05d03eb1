package app

import (
	"context"
	"os"

	"github.com/jabl/fancyquota/internal/config"
	"github.com/jabl/fancyquota/internal/exporter"
	"github.com/jabl/fancyquota/internal/filesystem"
	"github.com/jabl/fancyquota/internal/gateway"
	"github.com/jabl/fancyquota/internal/identity"
	"github.com/jabl/fancyquota/internal/logger"
	"github.com/jabl/fancyquota/internal/mount"
	"github.com/jabl/fancyquota/internal/quota"
	"github.com/jabl/fancyquota/internal/report"
	"github.com/sirupsen/logrus"
)

// Run prints the quota report described by c.
func Run(ctx context.Context, c config.Config) error {
	lg, err := logger.New(c.LogLevel)
	if err != nil {
		return err
	}
	ctx = logger.ContextWithRunID(ctx)
	l := logger.WithRunContext(ctx, lg.WithField(logger.HostKey, hostname()))
	return run(ctx, c, l)
}

func run(ctx context.Context, c config.Config, l *logrus.Entry) error {
	if c.Filesystem == nil {
		c.Filesystem = filesystem.NewLinuxFilesystem(l)
	}
	if c.Identity == nil {
		c.Identity = identity.NewOSDirectory(l)
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}

	principal, err := c.Identity.Current()
	if err != nil {
		return err
	}
	l = l.WithField(logger.LoginKey, principal.Login)
	for _, f := range c.Files {
		l.WithField(logger.ConfigFileKey, f).Debug("config file applied")
	}

	if err := c.Filesystem.Visit(ctx, c.Visit.Targets()); err != nil {
		return err
	}

	table, err := mount.Load(c.MountsPath)
	if err != nil {
		return err
	}
	l.WithField(logger.PathKey, c.MountsPath).WithField("mounts", table.Len()).Debug("mount table loaded")
	resolver := mount.NewAutomountResolver(table, principal.Login, l)

	blocks, err := quota.NewCommand(c.QuotaCommand, l).Run(ctx, resolver)
	if err != nil {
		if quota.ErrCommand.Has(err) {
			return err
		}
		l.WithError(err).Warn("skipped unparseable quota output")
	}

	primary := &report.QuotaSource{
		Blocks:       blocks,
		Principal:    principal,
		FilterGroups: c.Filter.Groups,
		FS:           c.Filesystem,
		Log:          l.WithField(logger.SourceKey, report.SourceQuota),
	}
	var gw report.Source
	if c.Gateway.Enabled() {
		gw = &report.GatewaySource{
			Client:       gateway.NewClient(c.Gateway.URL, c.Gateway.Timeout, l),
			Table:        table,
			Resolver:     resolver,
			Dirs:         c.Gateway.Dirs,
			Principal:    principal,
			Groups:       c.Identity,
			FilterGroups: c.Filter.Groups,
			FS:           c.Filesystem,
			Log:          l.WithField(logger.SourceKey, report.SourceGateway),
		}
	}
	capacity := &report.CapacitySource{
		Table:    table,
		Resolver: resolver,
		FS:       c.Filesystem,
		Log:      l.WithField(logger.SourceKey, report.SourceCapacity),
	}

	rows := report.Build(ctx, primary, gw, capacity)
	l.WithField("rows", len(rows)).Debug("report built")

	width := c.Width
	if width == 0 {
		width = report.ConsoleWidth()
	}
	if err := report.Render(c.Stdout, rows, width); err != nil {
		return err
	}

	if c.MetricsFile != "" {
		if err := exporter.WriteTextfile(c.MetricsFile, rows); err != nil {
			return err
		}
		l.WithField(logger.PathKey, c.MetricsFile).Debug("metrics written")
	}
	return nil
}

func hostname() string {
	if n, err := os.Hostname(); err == nil {
		return n
	}
	return ""
}
