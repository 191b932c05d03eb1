package report

import (
	"context"
	"math"
	"time"

	"github.com/jabl/fancyquota/internal/filesystem"
	"github.com/jabl/fancyquota/internal/format"
	"github.com/jabl/fancyquota/internal/quota"
)

// SourceName identifies where a row came from.
type SourceName string

const (
	SourceQuota    SourceName = "quota"
	SourceGateway  SourceName = "gateway"
	SourceCapacity SourceName = "capacity"
)

// Row is one display-ready line of the report.
type Row struct {
	Source     SourceName
	Kind       quota.PrincipalKind
	Principal  string
	Label      string
	Mountpoint string
	Figures    quota.Figures

	Usage   string
	PctUsed float64
	Quota   string
	Limit   string
	Grace   string
}

// KindLabel is the principal kind, empty for capacity rows which belong to nobody.
func (r Row) KindLabel() string {
	if r.Source == SourceCapacity {
		return ""
	}
	return r.Kind.String()
}

func quotaRow(src SourceName, kind quota.PrincipalKind, name, mountpoint string, f quota.Figures, now time.Time) Row {
	return Row{
		Source:     src,
		Kind:       kind,
		Principal:  name,
		Label:      kind.Prefix() + name,
		Mountpoint: mountpoint,
		Figures:    f,
		Usage:      format.SizeToHuman(f.UsedBytes),
		PctUsed:    format.PercentUsed(f.UsedBytes, f.SoftLimitBytes),
		Quota:      format.SizeToHuman(f.SoftLimitBytes),
		Limit:      format.SizeToHuman(f.HardLimitBytes),
		Grace:      format.GraceToHuman(f.Grace, now),
	}
}

// capacityRow describes a filesystem without any quota. The limit is what a
// non-root user can fill, the percentage is rounded up.
func capacityRow(mountpoint string, s filesystem.CapacityStatistics) Row {
	pct := math.Inf(1)
	if total := s.NonRootTotalBlocks(); total > 0 {
		u100 := s.UsedBlocks() * 100
		pct = float64(u100 / total)
		if u100%total != 0 {
			pct++
		}
	}
	f := quota.Figures{
		UsedBytes:      s.UsedBytes(),
		HardLimitBytes: s.NonRootTotalBytes(),
	}
	return Row{
		Source:     SourceCapacity,
		Mountpoint: mountpoint,
		Figures:    f,
		Usage:      format.SizeToHuman(f.UsedBytes),
		PctUsed:    pct,
		Limit:      format.SizeToHuman(f.HardLimitBytes),
	}
}

// DoneSet holds the mountpoints already reported in this run.
type DoneSet struct {
	m map[string]struct{}
}

func NewDoneSet() *DoneSet {
	return &DoneSet{m: make(map[string]struct{})}
}

func (d *DoneSet) Add(mountpoints ...string) {
	for _, mp := range mountpoints {
		d.m[mp] = struct{}{}
	}
}

func (d *DoneSet) Has(mountpoint string) bool {
	_, ok := d.m[mountpoint]
	return ok
}

func (d *DoneSet) Len() int {
	return len(d.m)
}

// Result is what a source contributes to the report.
type Result struct {
	Rows []Row
	// Covered lists the mountpoints the source took responsibility for,
	// including those whose rows were filtered out.
	Covered []string
}

// Source produces rows for mountpoints not yet in done. Sources only read done.
type Source interface {
	Collect(ctx context.Context, done *DoneSet) Result
}

// Build runs the sources in priority order, each seeing the mountpoints
// covered by the ones before it, and returns the rows in arrival order.
// Nil sources are skipped.
func Build(ctx context.Context, primary, gateway, capacity Source) []Row {
	done := NewDoneSet()
	var rows []Row
	for _, s := range []Source{primary, gateway, capacity} {
		if s == nil {
			continue
		}
		res := s.Collect(ctx, done)
		rows = append(rows, res.Rows...)
		done.Add(res.Covered...)
	}
	return rows
}
