package quota

import (
	"strconv"
	"strings"
)

// BlockSize is the unit of the block counts reported by quota(1), BLOCK_SIZE in sys/mount.h.
const BlockSize uint64 = 1024

// PrincipalKind tells whether a block holds a user or a group quota.
type PrincipalKind int

const (
	User PrincipalKind = iota
	Group
)

func (k PrincipalKind) String() string {
	if k == Group {
		return "group"
	}
	return "user"
}

// Prefix is the short label prefix used in the report.
func (k PrincipalKind) Prefix() string {
	if k == Group {
		return "g:"
	}
	return "u:"
}

func parsePrincipalKind(s string) (PrincipalKind, bool) {
	switch s {
	case "user":
		return User, true
	case "group":
		return Group, true
	}
	return User, false
}

type graceKind int

const (
	graceNone graceKind = iota
	graceDeadline
	graceText
)

// Grace is either no active grace period, an epoch deadline, or an opaque
// textual descriptor when the source gives no timestamp.
type Grace struct {
	kind  graceKind
	epoch int64
	text  string
}

// NoGrace means no grace period is running.
var NoGrace = Grace{}

func GraceDeadline(epoch int64) Grace {
	if epoch == 0 {
		return NoGrace
	}
	return Grace{kind: graceDeadline, epoch: epoch}
}

func GraceText(text string) Grace {
	if text == "" {
		return NoGrace
	}
	return Grace{kind: graceText, text: text}
}

// ParseGrace interprets a grace token. Empty, "0" and "-" mean no grace,
// integers are epoch deadlines and anything else is kept as text.
func ParseGrace(token string) Grace {
	token = strings.TrimSpace(token)
	if token == "" || token == "-" {
		return NoGrace
	}
	if epoch, err := strconv.ParseInt(token, 10, 64); err == nil {
		return GraceDeadline(epoch)
	}
	return GraceText(token)
}

func (g Grace) Active() bool {
	return g.kind != graceNone
}

// Deadline returns the epoch deadline, if the grace is one.
func (g Grace) Deadline() (int64, bool) {
	return g.epoch, g.kind == graceDeadline
}

// Text returns the textual descriptor, if the grace is one.
func (g Grace) Text() (string, bool) {
	return g.text, g.kind == graceText
}

// Figures are the byte figures of one quota entry.
type Figures struct {
	UsedBytes      uint64
	SoftLimitBytes uint64
	HardLimitBytes uint64
	Grace          Grace
}

// HasQuota reports whether a soft limit is configured. Soft limits of 0 and 1
// blocks are how quota tools say "no quota".
func (f Figures) HasQuota() bool {
	return f.SoftLimitBytes > BlockSize
}

// Entry is the quota of one principal on one mountpoint.
type Entry struct {
	Mountpoint string
	Figures    Figures
}

// Block holds every entry reported for one principal, in arrival order.
type Block struct {
	Kind    PrincipalKind
	Name    string
	Entries []Entry
}

// Label is the principal as shown in the report, e.g. "u:alice".
func (b Block) Label() string {
	return b.Kind.Prefix() + b.Name
}

// Set records figures for mountpoint. A mountpoint seen again keeps its
// position and takes the new figures.
func (b *Block) Set(mountpoint string, f Figures) {
	for i := range b.Entries {
		if b.Entries[i].Mountpoint == mountpoint {
			b.Entries[i].Figures = f
			return
		}
	}
	b.Entries = append(b.Entries, Entry{Mountpoint: mountpoint, Figures: f})
}

func (b Block) Lookup(mountpoint string) (Figures, bool) {
	for _, e := range b.Entries {
		if e.Mountpoint == mountpoint {
			return e.Figures, true
		}
	}
	return Figures{}, false
}
