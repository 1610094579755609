package models

import "time"

// ContributionStatus is the settlement state of a contribution.
//
// Contributions are settled immediately, so only ContributionCompleted is
// ever written. Pending and failed are reserved for a payment integration.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "pending"
	ContributionCompleted ContributionStatus = "completed"
	ContributionFailed    ContributionStatus = "failed"
)

// Contribution represents a member's payment toward a group's target.
type Contribution struct {
	// ID is the unique identifier for the contribution (UUID format).
	ID string

	GroupID       string
	ContributorID string

	// Amount is always positive.
	Amount Cents

	Status ContributionStatus

	// TransactionID is reserved for a payment provider reference.
	TransactionID string

	CreatedAt time.Time
}

// ContributionDetail is a contribution with its contributor resolved.
type ContributionDetail struct {
	*Contribution
	Contributor UserSummary
}
