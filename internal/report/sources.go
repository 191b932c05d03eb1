package report

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jabl/fancyquota/internal/filesystem"
	"github.com/jabl/fancyquota/internal/identity"
	"github.com/jabl/fancyquota/internal/logger"
	"github.com/jabl/fancyquota/internal/mount"
	"github.com/jabl/fancyquota/internal/quota"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// QuotaSource reports the blocks parsed from the quota command.
type QuotaSource struct {
	Blocks    []quota.Block
	Principal identity.Principal
	// FilterGroups are group names hidden from unprivileged users.
	FilterGroups []string
	FS           filesystem.Filesystem
	Now          time.Time
	Log          *logrus.Entry
}

func (s *QuotaSource) Collect(ctx context.Context, done *DoneSet) Result {
	var res Result
	for _, b := range s.Blocks {
		for _, e := range b.Entries {
			res.Covered = append(res.Covered, e.Mountpoint)
		}
	}
	now := nowOr(s.Now)
	log := logger.WithRunContext(ctx, s.Log)
	for _, b := range s.Blocks {
		blog := log.WithFields(logrus.Fields{
			logger.PrincipalKey:     b.Name,
			logger.PrincipalKindKey: b.Kind.String(),
		})
		if b.Kind == quota.Group && !s.Principal.Privileged() && lo.Contains(s.FilterGroups, b.Name) {
			blog.Debug("group filtered")
			continue
		}
		for _, e := range b.Entries {
			if !s.FS.Readable(e.Mountpoint) {
				blog.WithField(logger.MountpointKey, e.Mountpoint).Debug("mountpoint not readable, skipped")
				continue
			}
			res.Rows = append(res.Rows, quotaRow(SourceQuota, b.Kind, b.Name, e.Mountpoint, e.Figures, now))
		}
	}
	return res
}

// GroupQuotaClient fetches the quota of a group from a remote gateway.
type GroupQuotaClient interface {
	GroupQuota(ctx context.Context, gid int) (quota.Figures, error)
}

// GatewaySource asks a quota gateway for the group quota of NFS mounts under
// the configured directories. The owning group of the mountpoint decides
// which group is queried.
type GatewaySource struct {
	Client    GroupQuotaClient
	Table     *mount.Table
	Resolver  mount.Resolver
	Dirs      []string
	Principal identity.Principal
	Groups    identity.Directory
	// FilterGroups are group names never queried.
	FilterGroups []string
	FS           filesystem.Filesystem
	Now          time.Time
	Log          *logrus.Entry
}

func (s *GatewaySource) Collect(ctx context.Context, done *DoneSet) Result {
	var res Result
	if len(s.Dirs) == 0 {
		return res
	}
	now := nowOr(s.Now)
	log := logger.WithRunContext(ctx, s.Log)
	filtered := s.filteredGIDs(log)
	seen := NewDoneSet()
	for _, e := range s.Table.Entries() {
		if !e.IsNFS() {
			continue
		}
		mp := s.Resolver.Resolve(e.Device)
		if done.Has(mp) || seen.Has(mp) || !underAny(mp, s.Dirs) {
			continue
		}
		seen.Add(mp)
		mlog := log.WithFields(logrus.Fields{
			logger.MountpointKey: mp,
			logger.FilesystemKey: e.FSType,
		})
		gid, err := s.FS.OwnerGroup(mp)
		if err != nil {
			mlog.WithError(err).Debug("cannot stat mountpoint")
			continue
		}
		mlog = mlog.WithField(logger.GIDKey, gid)
		if !s.Principal.InGroup(gid) || filtered[gid] {
			mlog.Debug("owning group not queried")
			continue
		}
		f, err := s.Client.GroupQuota(ctx, gid)
		if err != nil {
			mlog.WithError(err).Warn("quota gateway query failed, falling back to filesystem capacity")
			continue
		}
		if !f.HasQuota() {
			mlog.Debug("no quota configured for group, falling back to filesystem capacity")
			continue
		}
		name, err := s.Groups.GroupName(gid)
		if err != nil {
			mlog.WithError(err).Debug("unknown group name, using gid")
			name = strconv.Itoa(gid)
		}
		res.Rows = append(res.Rows, quotaRow(SourceGateway, quota.Group, name, mp, f, now))
		res.Covered = append(res.Covered, mp)
	}
	return res
}

func (s *GatewaySource) filteredGIDs(log *logrus.Entry) map[int]bool {
	gids := make(map[int]bool, len(s.FilterGroups))
	for _, name := range s.FilterGroups {
		gid, err := s.Groups.LookupGroupID(name)
		if err != nil {
			log.WithError(err).WithField("group", name).Debug("filtered group does not exist")
			continue
		}
		gids[gid] = true
	}
	return gids
}

// CapacitySource reports NFS mounts no quota mechanism covered using the
// size of the filesystem, e.g. XFS project quotas exported over NFS.
type CapacitySource struct {
	Table    *mount.Table
	Resolver mount.Resolver
	FS       filesystem.Filesystem
	Log      *logrus.Entry
}

func (s *CapacitySource) Collect(ctx context.Context, done *DoneSet) Result {
	var res Result
	log := logger.WithRunContext(ctx, s.Log)
	for _, e := range s.Table.Entries() {
		if !e.IsNFS() {
			continue
		}
		mp := s.Resolver.Resolve(e.Device)
		if done.Has(mp) || lo.Contains(res.Covered, mp) {
			continue
		}
		mlog := log.WithFields(logrus.Fields{
			logger.MountpointKey: mp,
			logger.FilesystemKey: e.FSType,
		})
		if !s.FS.Readable(mp) {
			mlog.Debug("mountpoint not readable, skipped")
			continue
		}
		stats, err := s.FS.Statistics(mp)
		if err != nil {
			mlog.WithError(err).Warn("cannot read filesystem statistics")
			continue
		}
		res.Rows = append(res.Rows, capacityRow(mp, stats))
		res.Covered = append(res.Covered, mp)
	}
	return res
}

// underAny reports whether mountpoint is one of dirs or below one of them.
func underAny(mountpoint string, dirs []string) bool {
	return lo.SomeBy(dirs, func(dir string) bool {
		dir = strings.TrimRight(dir, "/")
		if dir == "" {
			return true
		}
		return mountpoint == dir || strings.HasPrefix(mountpoint, dir+"/")
	})
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
