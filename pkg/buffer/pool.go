// Package buffer pools the copy buffers used while streaming uploads.
package buffer

import "sync"

const DefaultSize = 256 * 1024

type Pool struct {
	size int
	pool sync.Pool
}

func NewPool(size int) *Pool {
	p := &Pool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

// Get returns a buffer of exactly the pool size.
func (p *Pool) Get() *[]byte {
	b := p.pool.Get().(*[]byte)
	*b = (*b)[:p.size]
	return b
}

// Put returns b to the pool. Buffers smaller than the pool size are dropped.
func (p *Pool) Put(b *[]byte) {
	if b == nil || cap(*b) < p.size {
		return
	}
	p.pool.Put(b)
}

var Default = NewPool(DefaultSize)
