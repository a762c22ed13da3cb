package insecurerandomness

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/rafa-protocol/rafad/internal/core/ports"
)

// service draws seeds from the operator's local entropy. The seed is not
// publicly verifiable, so this source is only suitable for development and
// single-operator deployments.
type service struct{}

func NewService() ports.RandomnessSource {
	return &service{}
}

func (s *service) GetSeed(ctx context.Context, alpha []byte) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return 0, fmt.Errorf("failed to read entropy: %w", err)
	}
	return binary.LittleEndian.Uint64(buf), nil
}
