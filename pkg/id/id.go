// Package id issues ULIDs for positions and decision records. ULIDs sort by
// creation time, which keeps SQLite primary key indexes append-mostly.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out monotonic ULIDs. IDs issued within the same
// millisecond still sort in issue order. Safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

// NewGenerator returns a generator reading time from now (time.Now when nil)
// and seeded from crypto/rand.
func NewGenerator(now func() time.Time) *Generator {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewGeneratorWithEntropy(now, rand.New(rand.NewSource(seed)))
}

// NewGeneratorWithEntropy is NewGenerator with a caller supplied random
// source, for reproducible IDs in tests.
func NewGeneratorWithEntropy(now func() time.Time, r io.Reader) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now, entropy: ulid.Monotonic(r, 0)}
}

// New returns the next ULID string.
func (g *Generator) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now().UTC()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var std = NewGenerator(nil)

// New returns a ULID from the package generator. It panics if entropy runs
// out, which a monotonic reader only does after 2^80 IDs in one millisecond.
func New() string {
	s, err := std.New()
	if err != nil {
		panic(err)
	}
	return s
}
