package sim

import (
	"math"
	"time"
)

// blockStats describes the work a tracer completed in the previous pass.
type blockStats struct {
	rows    uint32
	elapsed time.Duration
}

// The block scheduler assumes that the volume of tracing work between two
// subsequent passes is approximately the same and splits the frame rows
// between tracers in proportion to the speed each one achieved last time.
type blockScheduler struct {
	blockAssignment []uint32
}

// Split frame into blocks of variable height, one per tracer. When
// previous pass information is available the scheduler uses the following
// formula for estimating the workload for tracer w and pass i+1:
// w_i, p_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *blockScheduler) schedule(stats []blockStats, frameH uint32) []uint32 {
	// If this is the first time we try to schedule or the number of tracers
	// has changed we split the rows evenly
	if len(sch.blockAssignment) != len(stats) {
		sch.blockAssignment = make([]uint32, len(stats))
		for idx := range stats {
			sch.blockAssignment[idx] = frameH / uint32(len(stats))
		}
		return sch.fixup(frameH)
	}

	var total float64
	for _, st := range stats {
		total += speed(st)
	}

	scaler := float64(frameH) / total
	for idx, st := range stats {
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(speed(st)*scaler)))
	}
	return sch.fixup(frameH)
}

// Make the assignment add up to the frame height. Missing rows go to the
// first tracer; surplus rows are taken from the largest blocks.
func (sch *blockScheduler) fixup(frameH uint32) []uint32 {
	var scheduledRows uint32
	for _, rows := range sch.blockAssignment {
		scheduledRows += rows
	}

	if scheduledRows < frameH {
		sch.blockAssignment[0] += frameH - scheduledRows
		return sch.blockAssignment
	}

	for ; scheduledRows > frameH; scheduledRows-- {
		largest := 0
		for idx, rows := range sch.blockAssignment {
			if rows > sch.blockAssignment[largest] {
				largest = idx
			}
		}
		sch.blockAssignment[largest]--
	}
	return sch.blockAssignment
}

// Rows traced per nanosecond.
func speed(st blockStats) float64 {
	elapsed := st.elapsed
	if elapsed <= 0 {
		elapsed = 1
	}
	return float64(st.rows) / float64(elapsed)
}
