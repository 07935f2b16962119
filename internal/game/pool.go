package game

import (
	"fmt"
	"math/rand/v2"

	"nvivas/backend/bingo-go-server/internal/errors"
)

// Capacity is the number of balls in a Bingo pool (1..75).
const Capacity = 75

// NumberPool tracks which numbers have been drawn for one room.
// It is not safe for concurrent use; the hub owns it.
type NumberPool struct {
	drawn []int
	seen  [Capacity + 1]bool
	rng   *rand.Rand
}

// NewNumberPool creates an empty pool. A nil rng uses the global source.
func NewNumberPool(rng *rand.Rand) *NumberPool {
	return &NumberPool{
		drawn: make([]int, 0, Capacity),
		rng:   rng,
	}
}

// Draw selects a uniformly random undrawn number and records it.
// It returns false once all numbers have been drawn.
func (p *NumberPool) Draw() (int, bool) {
	remaining := make([]int, 0, Capacity-len(p.drawn))
	for n := 1; n <= Capacity; n++ {
		if !p.seen[n] {
			remaining = append(remaining, n)
		}
	}
	if len(remaining) == 0 {
		return 0, false
	}

	var idx int
	if p.rng != nil {
		idx = p.rng.IntN(len(remaining))
	} else {
		idx = rand.IntN(len(remaining))
	}

	n := remaining[idx]
	p.seen[n] = true
	p.drawn = append(p.drawn, n)
	return n, true
}

// Drawn returns a copy of the drawn numbers in draw order.
func (p *NumberPool) Drawn() []int {
	out := make([]int, len(p.drawn))
	copy(out, p.drawn)
	return out
}

// Len returns how many numbers have been drawn.
func (p *NumberPool) Len() int {
	return len(p.drawn)
}

// LastDrawn returns the most recent number, if any.
func (p *NumberPool) LastDrawn() (int, bool) {
	if len(p.drawn) == 0 {
		return 0, false
	}
	return p.drawn[len(p.drawn)-1], true
}

// Exhausted reports whether every number has been drawn.
func (p *NumberPool) Exhausted() bool {
	return len(p.drawn) == Capacity
}

// Has reports whether n has been drawn.
func (p *NumberPool) Has(n int) bool {
	if n < 1 || n > Capacity {
		return false
	}
	return p.seen[n]
}

// ContainsAll reports whether every claimed number has been drawn.
// An empty claim is never satisfied.
func (p *NumberPool) ContainsAll(claimed []int) bool {
	return p.ValidateClaim(claimed) == nil
}

// ValidateClaim explains why a claim fails, or returns nil for a valid one.
func (p *NumberPool) ValidateClaim(claimed []int) error {
	if len(claimed) == 0 {
		return errors.ErrEmptyClaim
	}
	for _, n := range claimed {
		if !p.Has(n) {
			return &ClaimError{Number: n}
		}
	}
	return nil
}

// ClaimError names the first claimed number that was not drawn.
type ClaimError struct {
	Number int
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("number %d was not drawn", e.Number)
}

func (e *ClaimError) Unwrap() error {
	return errors.ErrInvalidClaim
}

// Reset empties the pool.
func (p *NumberPool) Reset() {
	p.drawn = p.drawn[:0]
	p.seen = [Capacity + 1]bool{}
}

// LetterFor maps a number to its B-I-N-G-O column.
func LetterFor(n int) (string, error) {
	switch {
	case n >= 1 && n <= 15:
		return "B", nil
	case n >= 16 && n <= 30:
		return "I", nil
	case n >= 31 && n <= 45:
		return "N", nil
	case n >= 46 && n <= 60:
		return "G", nil
	case n >= 61 && n <= 75:
		return "O", nil
	}
	return "", fmt.Errorf("%w: %d", errors.ErrOutOfRange, n)
}
