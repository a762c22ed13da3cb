package ports

import "context"

// RandomnessSource provides the draw seed for a round. alpha is the domain
// separator the seed is bound to (the round identity). Implementations backed
// by a clock or counter are predictable and influenceable by whoever controls
// call timing; they are acceptable only for non-adversarial testing.
type RandomnessSource interface {
	GetSeed(ctx context.Context, alpha []byte) (uint64, error)
}
