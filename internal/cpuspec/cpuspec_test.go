package cpuspec

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterminePerformanceCores(t *testing.T) {
	tests := []struct {
		brand string
		want  int
	}{
		{"12th Gen Intel(R) Core(TM) i9-12900K", 8},
		{"13th Gen Intel(R) Core(TM) i5-13600KF", 6},
		{"Intel(R) Core(TM) i3-14100", 4},
		{"Intel(R) Core(TM) Ultra 7 265K", 8},
		{"Apple M1 Pro", 8},
		{"Apple M2 Max", 12},
		{"Apple M4", 6},
		{"AMD Ryzen 9 5950X 16-Core Processor", 0},
		{"unknown embedded cpu", 0},
	}

	for _, tt := range tests {
		t.Run(tt.brand, func(t *testing.T) {
			assert.Equal(t, tt.want, determinePerformanceCores(tt.brand))
		})
	}
}

func TestGetOptimalWorkerCount(t *testing.T) {
	t.Run("performance cores capped by available CPUs", func(t *testing.T) {
		spec := CPUSpec{PerformanceCores: runtime.NumCPU() + 8}
		assert.Equal(t, runtime.NumCPU(), spec.GetOptimalWorkerCount())
	})

	t.Run("performance cores win when available", func(t *testing.T) {
		spec := CPUSpec{PerformanceCores: 1}
		assert.Equal(t, 1, spec.GetOptimalWorkerCount())
	})

	t.Run("unknown layout falls back to logical cores", func(t *testing.T) {
		spec := CPUSpec{}
		assert.GreaterOrEqual(t, spec.GetOptimalWorkerCount(), 0)
	})
}

func TestGetCPUSpec(t *testing.T) {
	spec := GetCPUSpec()
	// Brand detection is hardware dependent; the spec itself must be usable
	// either way.
	assert.GreaterOrEqual(t, spec.PerformanceCores, 0)
}
