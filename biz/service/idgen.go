package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sony/sonyflake"
)

// IDGenerator issues process-unique, roughly time-ordered int64 identifiers
// for orders and trades. Grounded on the teacher's util.GenerateOrderID,
// which wraps the same sonyflake generator but was never declared in its
// own go.mod (§DESIGN, dead import) — wired here for real.
type IDGenerator struct {
	mu    sync.Mutex
	flake *sonyflake.Sonyflake
}

func NewIDGenerator() (*IDGenerator, error) {
	flake, err := sonyflake.New(sonyflake.Settings{})
	if err != nil {
		return nil, err
	}
	return &IDGenerator{flake: flake}, nil
}

func (g *IDGenerator) Next() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := g.flake.NextID()
	if err != nil {
		return 0, err
	}
	return int64(id), nil
}

// randomID mints an event id. Events are high-volume and read by external
// consumers keyed on uniqueness alone, so a UUID is cheaper than routing
// through the coordinated sonyflake instance.
func randomID() string {
	return uuid.NewString()
}
