package rowpipe

import "sync"

// Arena holds the context and scratch memory of one execution stream.
// An arena must not be shared by concurrent Process calls.
type Arena struct {
	ctx []byte
	tmp []byte
}

// NewArena allocates an arena sized for running s over columns [left, right).
func NewArena(s Stage, left, right int) *Arena {
	return &Arena{
		ctx: make([]byte, AlignUp(s.ContextSize())),
		tmp: make([]byte, AlignUp(s.TmpSize(left, right))),
	}
}

// Context returns the context region.
func (a *Arena) Context() []byte { return a.ctx }

// Tmp returns the scratch region.
func (a *Arena) Tmp() []byte { return a.tmp }

// ArenaPool is a thread-safe pool for reusing arenas.
//
// ArenaPool groups arenas by their aligned context and scratch sizes, so
// repeated runs of identically-shaped stages reuse memory.
//
// Thread safety: All methods are safe for concurrent use.
type ArenaPool struct {
	mu      sync.Mutex
	buckets map[arenaKey][]*Arena
	maxSize int // max arenas per bucket
}

// arenaKey identifies a bucket of identically-sized arenas.
type arenaKey struct {
	ctx int
	tmp int
}

// NewArenaPool creates a pool keeping at most maxPerBucket arenas of each
// size. A maxPerBucket of 0 means unlimited.
func NewArenaPool(maxPerBucket int) *ArenaPool {
	return &ArenaPool{
		buckets: make(map[arenaKey][]*Arena),
		maxSize: maxPerBucket,
	}
}

// Get retrieves an arena for running s over [left, right) or allocates a
// new one. The context contents are unspecified: callers run
// Stage.InitContext before use.
func (p *ArenaPool) Get(s Stage, left, right int) *Arena {
	key := arenaKey{ctx: AlignUp(s.ContextSize()), tmp: AlignUp(s.TmpSize(left, right))}

	p.mu.Lock()
	bucket := p.buckets[key]
	if n := len(bucket); n > 0 {
		a := bucket[n-1]
		p.buckets[key] = bucket[:n-1]
		p.mu.Unlock()
		return a
	}
	p.mu.Unlock()

	return &Arena{ctx: make([]byte, key.ctx), tmp: make([]byte, key.tmp)}
}

// Put returns an arena to the pool. If a is nil or its bucket is full,
// the arena is discarded.
func (p *ArenaPool) Put(a *Arena) {
	if a == nil {
		return
	}
	key := arenaKey{ctx: len(a.ctx), tmp: len(a.tmp)}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, a)
}

// Len returns the number of pooled arenas.
func (p *ArenaPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}
