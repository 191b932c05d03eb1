package mock

import (
	"github.com/jabl/fancyquota/internal/identity"
)

// MockDirectory serves a fixed principal and group table.
type MockDirectory struct {
	Principal identity.Principal
	// Groups maps gid to group name.
	Groups map[int]string
}

func (d *MockDirectory) Current() (identity.Principal, error) {
	return d.Principal, nil
}

func (d *MockDirectory) GroupName(gid int) (string, error) {
	if name, ok := d.Groups[gid]; ok {
		return name, nil
	}
	return "", identity.Error.New("unknown group %d", gid)
}

func (d *MockDirectory) LookupGroupID(name string) (int, error) {
	for gid, n := range d.Groups {
		if n == name {
			return gid, nil
		}
	}
	return 0, identity.Error.New("unknown group %q", name)
}
