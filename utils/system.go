package utils

import (
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap/zapcore"
)

// MemStats is a snapshot of the Go heap, sizes in MiB.
type MemStats struct {
	Alloc, TotalAlloc, Sys uint64
	NumGC                  uint32
}

func ReadMemStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// see https://golang.org/pkg/runtime/#MemStats
	bToMb := func(b uint64) uint64 { return b / 1024 / 1024 }
	return MemStats{Alloc: bToMb(m.Alloc), TotalAlloc: bToMb(m.TotalAlloc), Sys: bToMb(m.Sys), NumGC: m.NumGC}
}

func (m MemStats) String() string {
	return fmt.Sprintf("Alloc = %v MiB TotalAlloc = %v MiB Sys = %v MiB NumGC = %v",
		m.Alloc, m.TotalAlloc, m.Sys, m.NumGC)
}

func (m MemStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("allocMiB", m.Alloc)
	enc.AddUint64("totalAllocMiB", m.TotalAlloc)
	enc.AddUint64("sysMiB", m.Sys)
	enc.AddUint32("numGC", m.NumGC)
	return nil
}

// HasNaN reports whether any entry of v is NaN.
func HasNaN(v []float64) bool {
	for _, f := range v {
		if math.IsNaN(f) {
			return true
		}
	}
	return false
}
