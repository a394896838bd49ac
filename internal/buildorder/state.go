package buildorder

import (
	"errors"
	"fmt"
)

// ErrContractViolation is wrapped by every panic raised when a State operation is
// called outside its precondition.
var ErrContractViolation = errors.New("buildorder: contract violation")

// State is the economy at one instant. It is a value type: every operation returns
// a new State and leaves the receiver untouched.
type State struct {
	TimeLeft  int
	Bots      [NumResources]int
	Stock     [NumResources]int
	Blueprint *Blueprint
}

// NewState returns the canonical starting point: one base bot, empty stockpiles.
func NewState(bp *Blueprint, horizon int) State {
	if horizon < 0 {
		panic(fmt.Errorf("%w: negative horizon %d", ErrContractViolation, horizon))
	}
	s := State{TimeLeft: horizon, Blueprint: bp}
	s.Bots[Base] = 1
	return s
}

// SimulateStep lets every bot produce once and consumes one time step.
func (s State) SimulateStep() State {
	if s.TimeLeft <= 0 {
		panic(fmt.Errorf("%w: simulate step with no time left", ErrContractViolation))
	}
	s.TimeLeft--
	for k := range s.Stock {
		s.Stock[k] += s.Bots[k]
	}
	return s
}

// CanAfford reports whether a bot of the given kind can be ordered this step.
func (s State) CanAfford(kind Resource) bool {
	if s.TimeLeft < 1 {
		return false
	}
	cost := &s.Blueprint.Costs[kind]
	for k := range cost {
		if s.Stock[k] < cost[k] {
			return false
		}
	}
	return true
}

// Construct pays for a bot, runs one step, then adds the bot. The new bot does not
// produce during the step it is built in.
func (s State) Construct(kind Resource) State {
	if !s.CanAfford(kind) {
		panic(fmt.Errorf("%w: cannot afford %s bot (stock %v, time left %d)",
			ErrContractViolation, kind, s.Stock, s.TimeLeft))
	}
	cost := &s.Blueprint.Costs[kind]
	for k := range cost {
		s.Stock[k] -= cost[k]
	}
	s = s.SimulateStep()
	s.Bots[kind]++
	return s
}

// HasPrerequisites reports whether every resource the kind costs is already being
// produced. Without that, waiting can never make the kind affordable.
func (s State) HasPrerequisites(kind Resource) bool {
	cost := &s.Blueprint.Costs[kind]
	for k := range cost {
		if cost[k] > s.Stock[k] && s.Bots[k] == 0 {
			return false
		}
	}
	return true
}

// IdleScore is the output reached by building nothing more. Always achievable.
func (s State) IdleScore() int {
	return s.Stock[Output] + s.Bots[Output]*s.TimeLeft
}

// OptimisticScore bounds the output from above by pretending an output bot is
// built every remaining step for free.
func (s State) OptimisticScore() int {
	return s.IdleScore() + s.TimeLeft*(s.TimeLeft-1)/2
}

func (s State) String() string {
	return fmt.Sprintf("t=%d bots=%v stock=%v", s.TimeLeft, s.Bots, s.Stock)
}
