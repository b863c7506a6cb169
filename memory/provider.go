package memory

import (
	"github.com/shirou/gopsutil/v4/mem"
)

// Bytes per megabyte used by every memory estimate.
const MB = 1048576

// Free memory below which SystemProvider raises the low memory flag.
const DefaultLowMemoryThreshold = 64 * MB

// Info is a snapshot of the memory available to the process.
type Info struct {
	Available uint64
	Total     uint64

	// Set when the platform considers the system to be under memory pressure.
	LowMemory bool
}

// AvailableMB returns the available memory truncated to whole megabytes.
func (i Info) AvailableMB() uint64 {
	return i.Available / MB
}

// The Provider interface is implemented by memory information sources.
type Provider interface {
	MemoryInfo() (Info, error)
}

// SystemProvider reads virtual memory statistics from the host.
type SystemProvider struct {
	// The low memory flag is raised once available memory drops below
	// this many bytes. A zero value selects DefaultLowMemoryThreshold.
	Threshold uint64
}

func (p SystemProvider) MemoryInfo() (Info, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Info{}, err
	}

	threshold := p.Threshold
	if threshold == 0 {
		threshold = DefaultLowMemoryThreshold
	}

	return Info{
		Available: vm.Available,
		Total:     vm.Total,
		LowMemory: vm.Available < threshold,
	}, nil
}
