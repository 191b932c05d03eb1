package identity

import (
	"os"
	"os/user"
	"strconv"

	"github.com/jabl/fancyquota/internal/logger"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs"
	"golang.org/x/sys/unix"
)

var Error = errs.Class("identity")

// Principal is the user running the report.
type Principal struct {
	Login string
	UID   int
	EUID  int
	// GIDs holds the effective and supplementary group IDs.
	GIDs []int
}

// Privileged reports whether group filtering should be bypassed.
func (p Principal) Privileged() bool {
	return p.EUID == 0
}

func (p Principal) InGroup(gid int) bool {
	return lo.Contains(p.GIDs, gid)
}

// Directory resolves the invoking principal and translates group names and IDs.
type Directory interface {
	Current() (Principal, error)
	GroupName(gid int) (string, error)
	LookupGroupID(name string) (int, error)
}

type OSDirectory struct {
	log *logrus.Entry
}

func NewOSDirectory(log *logrus.Entry) *OSDirectory {
	return &OSDirectory{log: log}
}

// Current prefers $LOGNAME for the login, like quota(1) does, and falls back
// to the passwd entry of the real uid.
func (d *OSDirectory) Current() (Principal, error) {
	p := Principal{
		UID:  unix.Getuid(),
		EUID: unix.Geteuid(),
	}
	p.Login = os.Getenv("LOGNAME")
	if p.Login == "" {
		u, err := user.LookupId(strconv.Itoa(p.UID))
		if err != nil {
			return Principal{}, Error.Wrap(err)
		}
		p.Login = u.Username
	}
	groups, err := unix.Getgroups()
	if err != nil {
		return Principal{}, Error.Wrap(err)
	}
	p.GIDs = lo.Uniq(append([]int{unix.Getegid()}, groups...))
	d.log.WithFields(logrus.Fields{
		logger.LoginKey: p.Login,
		logger.UIDKey:   p.UID,
		"euid":          p.EUID,
		"gids":          p.GIDs,
	}).Debug("resolved invoking principal")
	return p, nil
}

func (d *OSDirectory) GroupName(gid int) (string, error) {
	g, err := user.LookupGroupId(strconv.Itoa(gid))
	if err != nil {
		return "", Error.Wrap(err)
	}
	return g.Name, nil
}

func (d *OSDirectory) LookupGroupID(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return gid, nil
}
