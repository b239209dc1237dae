package video

import (
	"math/rand/v2"
	"sync"
)

// Selector chooses the persona template for a reply. A sender who is the
// primary persona gets the primary template; everyone else gets one of the
// alternates, picked uniformly at random.
type Selector struct {
	Primary    string
	Alternates []string

	mu   sync.Mutex
	rand *rand.Rand
}

func NewSelector(primary string, alternates []string) *Selector {
	return &Selector{
		Primary:    primary,
		Alternates: alternates,
		rand:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewSeededSelector is deterministic; tests use it.
func NewSeededSelector(primary string, alternates []string, seed uint64) *Selector {
	s := NewSelector(primary, alternates)
	s.rand = rand.New(rand.NewPCG(seed, seed))
	return s
}

func (s *Selector) Pick(senderIsPrimary bool) string {
	if senderIsPrimary || len(s.Alternates) == 0 {
		return s.Primary
	}
	s.mu.Lock()
	i := s.rand.IntN(len(s.Alternates))
	s.mu.Unlock()
	return s.Alternates[i]
}
