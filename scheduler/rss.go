package scheduler

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// defaultRSSProbe reads the current process's resident-set size, the Go
// analogue of the original Python source's psutil.Process(os.getpid())
// .memory_info().rss (spec.md §4.4/§5 — "a per-process resident memory
// probe"). Grounded on github.com/shirou/gopsutil, the pack's own
// idiomatic replacement for psutil (see DataDog-datadog-agent,
// TheEntropyCollective-noisefs in the retrieved manifests).
func defaultRSSProbe() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}
