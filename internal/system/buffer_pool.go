package system

import (
	"bytes"
	"sync"
)

// maxPooledBuffer caps the capacity kept in the pool so one oversized
// engine output does not pin memory for the rest of the process.
const maxPooledBuffer = 4 << 20

// BufferPool reuses the byte buffers that collect subprocess output
// (ffprobe JSON, rendered markup, engine stderr).
type BufferPool struct {
	pool sync.Pool
}

var globalPool = NewBufferPool()

// NewBufferPool creates an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// GetBuffer returns an empty buffer from the shared pool.
func GetBuffer() *bytes.Buffer {
	return globalPool.Get()
}

// PutBuffer returns buf to the shared pool.
func PutBuffer(buf *bytes.Buffer) {
	globalPool.Put(buf)
}

func (p *BufferPool) Get() *bytes.Buffer {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}
