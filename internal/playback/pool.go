package playback

import (
	"sync"
	"sync/atomic"

	"github.com/izzarra/Vertigini-VR/internal/errors"
)

// Float32Pool is a thread-safe pool of fixed-size float32 slices used for
// render-block scratch buffers. It falls back to allocation when empty, so
// Get never fails.
type Float32Pool struct {
	pool      sync.Pool
	size      int
	gets      atomic.Uint64
	news      atomic.Uint64
	discarded atomic.Uint64
}

// Float32PoolStats contains statistics about pool usage.
type Float32PoolStats struct {
	Hits      uint64 // successful buffer reuses (Gets - News)
	Misses    uint64 // new allocations
	Discarded uint64 // buffers discarded due to size mismatch
}

// NewFloat32Pool creates a pool of float32 slices of the given size.
func NewFloat32Pool(size int) (*Float32Pool, error) {
	if size <= 0 {
		return nil, errors.Newf("invalid float32 pool size: %d", size).
			Component(ComponentPlayback).
			Category(errors.CategoryValidation).
			Context("requested_size", size).
			Build()
	}

	fp := &Float32Pool{size: size}
	fp.pool = sync.Pool{
		New: func() any {
			fp.news.Add(1)
			return make([]float32, size)
		},
	}
	return fp, nil
}

// Get retrieves a slice from the pool, allocating when the pool is empty.
func (fp *Float32Pool) Get() []float32 {
	fp.gets.Add(1)
	return fp.pool.Get().([]float32)
}

// Put returns a slice to the pool. Wrongly sized or nil buffers are
// discarded to keep the pool uniform.
func (fp *Float32Pool) Put(buf []float32) {
	if buf == nil || len(buf) != fp.size {
		fp.discarded.Add(1)
		return
	}
	fp.pool.Put(buf)
}

// Size returns the slice length this pool hands out.
func (fp *Float32Pool) Size() int { return fp.size }

// GetStats returns current pool statistics.
func (fp *Float32Pool) GetStats() Float32PoolStats {
	gets := fp.gets.Load()
	news := fp.news.Load()
	return Float32PoolStats{
		Hits:      gets - news,
		Misses:    news,
		Discarded: fp.discarded.Load(),
	}
}
