package filesystem

import (
	"context"
)

// CapacityStatistics are the raw block counts of a filesystem, in FragmentSize units.
type CapacityStatistics struct {
	TotalBlocks,
	FreeBlocks,
	AvailableBlocks,
	FragmentSize uint64
}

func (s CapacityStatistics) UsedBlocks() uint64 {
	return s.TotalBlocks - s.FreeBlocks
}

func (s CapacityStatistics) UsedBytes() uint64 {
	return s.UsedBlocks() * s.FragmentSize
}

// NonRootTotalBlocks is the capacity an unprivileged user can fill, i.e. the
// total without the root reserved margin.
func (s CapacityStatistics) NonRootTotalBlocks() uint64 {
	return s.UsedBlocks() + s.AvailableBlocks
}

func (s CapacityStatistics) NonRootTotalBytes() uint64 {
	return s.NonRootTotalBlocks() * s.FragmentSize
}

type Filesystem interface {
	Statistics(path string) (CapacityStatistics, error)
	Readable(path string) bool
	OwnerGroup(path string) (int, error)
	Visit(ctx context.Context, dirs []string) error
}
