package domain

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so runs are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IdGenerator produces run identifiers.
type IdGenerator interface {
	New() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
