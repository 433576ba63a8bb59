package sim

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

var idGeneratorMutex sync.Mutex
var idGeneratorInstantiated bool
var idGenerator IDGenerator

// IDGenerator can generate IDs.
type IDGenerator interface {
	// Generate an ID.
	Generate() string
}

// UseSequentialIDGenerator configures the ID generator to generate IDs in
// sequential order. Sequential IDs are deterministic across runs.
func UseSequentialIDGenerator() {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if idGeneratorInstantiated {
		log.Panic("cannot change id generator type after using it")
	}

	idGenerator = &sequentialIDGenerator{}
	idGeneratorInstantiated = true
}

// UseParallelIDGenerator configures the ID generator to generate IDs that are
// safe to create from multiple goroutines. The IDs generated will not be
// deterministic anymore.
func UseParallelIDGenerator() {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if idGeneratorInstantiated {
		log.Panic("cannot change id generator type after using it")
	}

	idGenerator = &parallelIDGenerator{}
	idGeneratorInstantiated = true
}

// GetIDGenerator returns the ID generator used in the current simulation.
func GetIDGenerator() IDGenerator {
	if idGeneratorInstantiated {
		return idGenerator
	}

	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if idGeneratorInstantiated {
		return idGenerator
	}

	idGenerator = &sequentialIDGenerator{}
	idGeneratorInstantiated = true

	return idGenerator
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return strconv.FormatUint(idNumber, 10)
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
