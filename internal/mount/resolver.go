package mount

import (
	"path"

	"github.com/jabl/fancyquota/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs"
)

// ErrResolution is returned by ResolveStrict when no mountpoint matches.
var ErrResolution = errs.Class("mount resolution")

// Resolver maps a raw filesystem identifier to the mountpoint the user sees.
type Resolver interface {
	Resolve(raw string) string
}

// AutomountResolver resolves identifiers against a mount table, working
// around automounter wildcard maps that register a map path instead of the
// path actually serving the user.
type AutomountResolver struct {
	table *Table
	login string
	log   *logrus.Entry
}

func NewAutomountResolver(table *Table, login string, l *logrus.Entry) *AutomountResolver {
	return &AutomountResolver{table: table, login: login, log: l}
}

// Resolve returns the mountpoint for raw, or raw itself when nothing matches.
func (r *AutomountResolver) Resolve(raw string) string {
	mp, err := r.ResolveStrict(raw)
	if err != nil {
		r.log.WithField(logger.DeviceKey, raw).Debug("no mountpoint found, using raw filesystem identifier")
		return raw
	}
	return mp
}

// ResolveStrict tries the identifier as a device first and then the
// identifier's parent joined with the login name.
func (r *AutomountResolver) ResolveStrict(raw string) (string, error) {
	if e, ok := r.table.LookupByDevice(raw); ok {
		return e.Mountpoint, nil
	}
	if r.login != "" {
		candidate := path.Join(path.Dir(raw), r.login)
		if e, ok := r.table.LookupByDevice(candidate); ok {
			r.log.WithFields(logrus.Fields{logger.DeviceKey: raw, "candidate": candidate}).Debug("resolved through automount wildcard")
			return e.Mountpoint, nil
		}
	}
	return "", ErrResolution.New("no mount for %q", raw)
}
