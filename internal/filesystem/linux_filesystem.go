package filesystem

import (
	"context"
	"strings"

	"github.com/jabl/fancyquota/internal/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// visitConcurrency limits parallel stat calls while triggering the automounter.
const visitConcurrency = 8

type LinuxFilesystem struct {
	log *logrus.Entry
}

func NewLinuxFilesystem(log *logrus.Entry) *LinuxFilesystem {
	return &LinuxFilesystem{log: log}
}

// Statistics returns the block counts of the filesystem holding path.
func (m *LinuxFilesystem) Statistics(path string) (CapacityStatistics, error) {
	var statfs unix.Statfs_t
	// See http://man7.org/linux/man-pages/man2/statfs.2.html for details.
	if err := unix.Statfs(path, &statfs); err != nil {
		return CapacityStatistics{}, err
	}
	frsize := uint64(statfs.Frsize) //nolint:unconvert // unix.Statfs_t integer types varies between GOARCHs
	if frsize == 0 {
		frsize = uint64(statfs.Bsize) //nolint:unconvert // unix.Statfs_t integer types varies between GOARCHs
	}
	stats := CapacityStatistics{
		TotalBlocks:     uint64(statfs.Blocks), //nolint:unconvert // unix.Statfs_t integer types varies between GOARCHs
		FreeBlocks:      uint64(statfs.Bfree),  //nolint:unconvert // unix.Statfs_t integer types varies between GOARCHs
		AvailableBlocks: uint64(statfs.Bavail), //nolint:unconvert // unix.Statfs_t integer types varies between GOARCHs
		FragmentSize:    frsize,
	}
	m.log.WithFields(logrus.Fields{logger.PathKey: path, "stats": stats}).Debug("filesystem statistics")
	return stats, nil
}

// Readable reports whether the calling user may read path.
func (m *LinuxFilesystem) Readable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}

// OwnerGroup returns the group ID owning path.
func (m *LinuxFilesystem) OwnerGroup(path string) (int, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return int(st.Gid), nil
}

// Visit stats every directory so that autofs mounts it before the mount
// table is read. Failures are logged and otherwise ignored.
func (m *LinuxFilesystem) Visit(ctx context.Context, dirs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(visitConcurrency)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		// autofs only triggers on a path ending with a slash
		target := strings.TrimRight(dir, "/") + "/"
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var st unix.Stat_t
			if err := unix.Stat(target, &st); err != nil {
				m.log.WithField(logger.PathKey, target).WithError(err).Debug("visiting directory failed")
				return nil
			}
			m.log.WithField(logger.PathKey, target).Debug("visited directory")
			return nil
		})
	}
	return g.Wait()
}
