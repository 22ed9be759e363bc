package utils

import (
	"fmt"

	"github.com/prometheus/procfs"
)

const bytesPerMB = 1024 * 1024

// ResidentMemoryMB sums the resident set size of the given processes in megabytes.
// A pid of 0 means the current process. Processes that cannot be read are skipped
// unless none can be read at all.
func ResidentMemoryMB(pids ...int) (int64, error) {
	if len(pids) == 0 {
		pids = []int{0}
	}

	var total int64
	var lastErr error
	read := 0
	for _, pid := range pids {
		rss, err := residentBytes(pid)
		if err != nil {
			lastErr = err
			continue
		}
		total += rss
		read++
	}
	if read == 0 {
		return 0, fmt.Errorf("read resident memory: %w", lastErr)
	}
	return total / bytesPerMB, nil
}

// ProcessTreeMB sums the resident memory of the current process, root and every
// process descending from root. Chrome keeps renderers and GPU helpers as children
// of the browser process.
func ProcessTreeMB(root int) (int64, error) {
	pids := []int{0}
	if root > 0 {
		tree, err := processTree(root)
		if err != nil {
			tree = []int{root}
		}
		pids = append(pids, tree...)
	}
	return ResidentMemoryMB(pids...)
}

func processTree(root int) ([]int, error) {
	procs, err := procfs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	parents := make(map[int]int, len(procs))
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			continue // exited while listing
		}
		parents[p.PID] = stat.PPID
	}
	return descendants(root, parents), nil
}

// descendants returns root followed by every pid whose parent chain reaches root.
func descendants(root int, parents map[int]int) []int {
	children := make(map[int][]int)
	for pid, ppid := range parents {
		children[ppid] = append(children[ppid], pid)
	}

	out := []int{root}
	seen := map[int]bool{root: true}
	for i := 0; i < len(out); i++ {
		for _, child := range children[out[i]] {
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
			}
		}
	}
	return out
}

func residentBytes(pid int) (int64, error) {
	var (
		proc procfs.Proc
		err  error
	)
	if pid == 0 {
		proc, err = procfs.Self()
	} else {
		proc, err = procfs.NewProc(pid)
	}
	if err != nil {
		return 0, err
	}
	stat, err := proc.Stat()
	if err != nil {
		return 0, err
	}
	return int64(stat.ResidentMemory()), nil
}
