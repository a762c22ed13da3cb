package vrfrandomness

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/rafa-protocol/rafad/internal/core/ports"
	"github.com/vechain/go-ecvrf"
)

// service derives seeds with an elliptic curve VRF over the round identifier.
// Anyone holding the public key can verify that the operator did not grind
// the draw.
type service struct {
	privKey *ecdsa.PrivateKey
}

func NewService(secretHex string) (ports.RandomnessSource, error) {
	buf, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("invalid vrf secret: %w", err)
	}
	privKey := secp256k1.PrivKeyFromBytes(buf)
	if privKey.Key.IsZero() {
		return nil, fmt.Errorf("invalid vrf secret: zero key")
	}
	return &service{privKey: privKey.ToECDSA()}, nil
}

func (s *service) GetSeed(ctx context.Context, alpha []byte) (uint64, error) {
	beta, _, err := ecvrf.Secp256k1Sha256Tai.Prove(s.privKey, alpha)
	if err != nil {
		return 0, fmt.Errorf("failed to prove over alpha: %w", err)
	}
	return binary.LittleEndian.Uint64(beta[:8]), nil
}
