// Package drawdomain implements the commit-reveal randomness engine
// and the round state machine. Everything here is deterministic and
// side-effect free so observers can replay a draw from the revealed
// seed and the ordered entry list.
package drawdomain

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/civic-spark/rewards-backend/internal/types"
)

// SeedBytes is the secret seed length. 32 bytes keeps the commitment
// preimage beyond brute force.
const SeedBytes = 32

// GenerateSeed returns a fresh hex-encoded random seed.
func GenerateSeed() (string, error) {
	buf := make([]byte, SeedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Commitment returns the hex SHA-256 commitment for a seed. The
// commitment is published when the round opens, before any entry
// exists.
func Commitment(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// VerifyCommitment checks a revealed seed against its published
// commitment in constant time.
func VerifyCommitment(seed, commitment string) bool {
	expected := Commitment(seed)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(commitment)) == 1
}

// EntriesDigest hashes the ordered entry ID sequence. The digest is
// fixed at lock time; it binds the draw to the exact entry list every
// participant can observe.
func EntriesDigest(entryIDs []types.EntryID) string {
	h := sha256.New()
	for _, id := range entryIDs {
		h.Write([]byte(id.String()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DeriveRandomness combines the revealed seed with the entries digest.
// Neither the operator (who knows the seed but not the final entry
// list in advance) nor any participant (who can see entries but not
// the seed) can steer the result.
func DeriveRandomness(seed, entriesDigest string) []byte {
	sum := sha256.Sum256([]byte(seed + entriesDigest))
	return sum[:]
}

// Ticket is one weighted draw ticket: one per entry, in entry order.
type Ticket struct {
	EntryID types.EntryID
	UserID  types.UserID
}

// WinnerPick is the outcome of one tier's draw.
type WinnerPick struct {
	Tier    types.Tier
	UserID  types.UserID
	EntryID types.EntryID
}

// drawStream yields uniform random indices from an HMAC-SHA256 counter
// stream keyed by the draw randomness. The stream is the only source
// of randomness in winner selection, which makes the draw replayable.
type drawStream struct {
	key     []byte
	counter uint64
	buf     []byte
}

func newDrawStream(randomness []byte) *drawStream {
	return &drawStream{key: randomness}
}

func (s *drawStream) next() uint64 {
	if len(s.buf) < 8 {
		mac := hmac.New(sha256.New, s.key)
		var block [8]byte
		binary.BigEndian.PutUint64(block[:], s.counter)
		s.counter++
		mac.Write(block[:])
		s.buf = mac.Sum(nil)
	}
	v := binary.BigEndian.Uint64(s.buf[:8])
	s.buf = s.buf[8:]
	return v
}

// intn returns a uniform value in [0, n) using rejection sampling to
// avoid modulo bias.
func (s *drawStream) intn(n int) int {
	if n <= 0 {
		panic("drawStream.intn: n must be positive")
	}
	un := uint64(n)
	limit := ^uint64(0) - (^uint64(0) % un)
	for {
		v := s.next()
		if v < limit {
			return int(v % un)
		}
	}
}

// SelectWinners draws one winner per tier from the ordered ticket
// population. Each entry is one ticket, so a user with N entries has
// N-fold weight for the top tier. A user wins at most one tier: all of
// a winner's tickets leave the population before the next tier is
// drawn. When fewer distinct entrants than tiers exist, the result is
// shorter than tiers. Given the same randomness and ticket order the
// output is always identical.
func SelectWinners(randomness []byte, tickets []Ticket, tiers int) []WinnerPick {
	stream := newDrawStream(randomness)

	remaining := make([]Ticket, len(tickets))
	copy(remaining, tickets)

	var picks []WinnerPick
	for tier := 1; tier <= tiers && len(remaining) > 0; tier++ {
		idx := stream.intn(len(remaining))
		won := remaining[idx]
		picks = append(picks, WinnerPick{
			Tier:    types.Tier(tier),
			UserID:  won.UserID,
			EntryID: won.EntryID,
		})

		filtered := remaining[:0]
		for _, t := range remaining {
			if t.UserID != won.UserID {
				filtered = append(filtered, t)
			}
		}
		remaining = filtered
	}

	return picks
}
