// Package app contains application services and port definitions for the evaluation context.
package app

import (
	"github.com/fd1az/flash-arb/business/evaluation/domain"
)

// FeeSnapshot is one self-consistent view of the fee schedule. Both venue
// lookups of a single evaluation must go through the same snapshot so a
// concurrent schedule update can never mix two versions within one decision.
type FeeSnapshot interface {
	// FeeRate resolves the fee a venue charges for trading a token.
	// The second return is false when the venue has no schedule entry.
	FeeRate(venueID, token string) (domain.FeeRate, bool)
}

// FeeSchedule hands out immutable snapshots of the current fee schedule.
type FeeSchedule interface {
	Snapshot() FeeSnapshot
}
