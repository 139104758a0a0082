package statemachine

import (
	"errors"
	"fmt"
	"strings"

	"meal-order-api/models"
)

// Actors allowed to drive a transition
const (
	ActorGateway = "gateway"
	ActorAdmin   = "admin"
)

// ErrInvalidTransition is wrapped by every CanTransition failure
var ErrInvalidTransition = errors.New("invalid transition")

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor string             `json:"actor"`
}

// validTransitions is the authoritative state machine definition.
// Nothing ever moves back to pending.
var validTransitions = []Transition{
	// Payment verification outcome
	{From: models.StatusPending, To: models.StatusPaid, Actor: ActorGateway},
	{From: models.StatusPending, To: models.StatusFailed, Actor: ActorGateway},
	// Manual reconciliation of a pending order
	{From: models.StatusPending, To: models.StatusPaid, Actor: ActorAdmin},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusPending, To: models.StatusFailed, Actor: ActorAdmin},
	// Fulfilment and refunds
	{From: models.StatusPaid, To: models.StatusDelivered, Actor: ActorAdmin},
	{From: models.StatusPaid, To: models.StatusRefunded, Actor: ActorAdmin},
	{From: models.StatusDelivered, To: models.StatusRefunded, Actor: ActorAdmin},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// Statuses lists every known order status
func Statuses() []models.OrderStatus {
	return []models.OrderStatus{
		models.StatusPending,
		models.StatusPaid,
		models.StatusFailed,
		models.StatusCancelled,
		models.StatusRefunded,
		models.StatusDelivered,
	}
}

// IsKnown reports whether s is one of Statuses
func IsKnown(s models.OrderStatus) bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// TerminalStatuses returns the states with no way out
func TerminalStatuses() []models.OrderStatus {
	var out []models.OrderStatus
	for _, s := range Statuses() {
		if len(ValidTransitionsFrom(s)) == 0 {
			out = append(out, s)
		}
	}
	return out
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor string) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("%w: %s → %s is not allowed for actor '%s'. Valid transitions from %s are: %s",
		ErrInvalidTransition, from, to, actor, from, describeValidFrom(from))
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
