package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxRounds bounds a single run. The base RDFS rules reach a fixpoint
// in a number of rounds proportional to the longest subclass or
// subproperty chain, far below this.
const DefaultMaxRounds = 64

// RoundGuard counts rounds in one run and enforces the maximum.
//
// Forward chaining over a finite vocabulary always terminates, but a
// custom rule set over a large hierarchy may take more rounds than a
// caller is willing to wait for. The guard turns that into an error
// instead of an unbounded run.
type RoundGuard struct {
	maxRounds int
	current   int
}

// NewRoundGuard creates a guard with the given limit.
func NewRoundGuard(maxRounds int) *RoundGuard {
	return &RoundGuard{maxRounds: maxRounds}
}

// Check increments the round counter and validates against the limit.
// Called before each round is evaluated.
func (g *RoundGuard) Check(runID string) error {
	g.current++
	if g.current > g.maxRounds {
		return &MaxRoundsExceededError{
			RunID:  runID,
			Rounds: g.current - 1,
			Limit:  g.maxRounds,
		}
	}
	return nil
}

// Current returns the number of rounds started.
func (g *RoundGuard) Current() int {
	return g.current
}

// MaxRounds returns the limit.
func (g *RoundGuard) MaxRounds() int {
	return g.maxRounds
}

// MaxRoundsExceededError is returned when a run still has new triples after
// the round limit. Rounds completed before the limit are fully merged.
type MaxRoundsExceededError struct {
	RunID  string // The run that hit the limit
	Rounds int    // Rounds completed
	Limit  int    // Maximum allowed rounds
}

// Error implements the error interface.
func (e *MaxRoundsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max rounds: %d rounds completed, limit %d",
		e.RunID, e.Rounds, e.Limit)
}

// IsMaxRoundsExceeded returns true if the error is a MaxRoundsExceededError.
// Uses errors.As to handle wrapped errors.
func IsMaxRoundsExceeded(err error) bool {
	var me *MaxRoundsExceededError
	return errors.As(err, &me)
}
