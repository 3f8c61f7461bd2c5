package acl

import (
	"errors"
	"fmt"
)

var (
	// ErrRoundLimit is returned by StartRound once MaxRounds rounds have started
	ErrRoundLimit = errors.New("tool round limit reached")

	// ErrCallLimit is returned by RecordCall once MaxCalls calls were recorded
	ErrCallLimit = errors.New("tool call limit reached")
)

// TurnCounter tracks tool rounds and calls for one conversation turn.
// It is single-owner state: create one per turn and pass it explicitly.
// A zero limit means unlimited.
type TurnCounter struct {
	MaxRounds int
	MaxCalls  int

	rounds int
	calls  int
}

// NewTurnCounter creates a counter with the given limits
func NewTurnCounter(maxRounds, maxCalls int) *TurnCounter {
	return &TurnCounter{MaxRounds: maxRounds, MaxCalls: maxCalls}
}

// StartRound begins a new tool round
func (c *TurnCounter) StartRound() error {
	if c.MaxRounds > 0 && c.rounds >= c.MaxRounds {
		return fmt.Errorf("%w (%d)", ErrRoundLimit, c.MaxRounds)
	}
	c.rounds++
	return nil
}

// RecordCall counts one tool invocation
func (c *TurnCounter) RecordCall() error {
	if c.MaxCalls > 0 && c.calls >= c.MaxCalls {
		return fmt.Errorf("%w (%d)", ErrCallLimit, c.MaxCalls)
	}
	c.calls++
	return nil
}

func (c *TurnCounter) Rounds() int {
	return c.rounds
}

func (c *TurnCounter) Calls() int {
	return c.calls
}

// Reset clears the counts, keeping the limits
func (c *TurnCounter) Reset() {
	c.rounds = 0
	c.calls = 0
}
