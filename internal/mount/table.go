package mount

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/zeebo/errs"
)

// DefaultMountsPath is the live mount list of the calling process.
const DefaultMountsPath = "/proc/self/mounts"

// ErrIO is returned when the mount list cannot be read.
var ErrIO = errs.Class("mount table")

// mountsUnescaper reverses the octal escaping the kernel applies to mount fields.
var mountsUnescaper = strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)

// Entry represents an active mount.
type Entry struct {
	Device     string
	Mountpoint string
	FSType     string
}

// IsNFS reports whether the entry is any NFS flavour (nfs, nfs4).
func (e Entry) IsNFS() bool {
	return strings.HasPrefix(e.FSType, "nfs")
}

// Table is a snapshot of the host's active mounts. It is immutable once built.
type Table struct {
	entries  []Entry
	byDevice map[string]int
}

// NewTable builds a table from entries. A device listed more than once keeps
// the position of its first appearance and the values of its last one.
func NewTable(entries ...Entry) *Table {
	t := &Table{byDevice: make(map[string]int, len(entries))}
	for _, e := range entries {
		if i, ok := t.byDevice[e.Device]; ok {
			t.entries[i] = e
			continue
		}
		t.byDevice[e.Device] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t
}

// Load reads the mount list at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrIO.Wrap(err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads whitespace separated `device mountpoint fstype ...` lines.
// Trailing fields are ignored, lines with fewer than three fields are skipped.
func Parse(r io.Reader) (*Table, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		entries = append(entries, Entry{
			Device:     mountsUnescaper.Replace(fields[0]),
			Mountpoint: mountsUnescaper.Replace(fields[1]),
			FSType:     fields[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, ErrIO.Wrap(err)
	}
	return NewTable(entries...), nil
}

func (t *Table) LookupByDevice(device string) (Entry, bool) {
	i, ok := t.byDevice[device]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Entries returns the mounts in mount list order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Table) Len() int {
	return len(t.entries)
}
