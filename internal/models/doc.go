// Package models defines the core domain models for campusbuy.
//
// # Models
//
//   - User: a registered student, vendor or admin account
//   - UserSummary: the display-safe projection of a User that is embedded in
//     group and contribution responses
//   - Group: a pooled-purchase campaign with a membership cap, a monetary
//     target and an expiry date
//   - Contribution: a member's payment toward a group's target
//
// # Relationships
//
// Models reference each other by ID string, never by pointer. A Group does not
// embed its contributions; they are queried by group ID on demand.
//
// # Group status
//
// A group is open while it accepts members and contributions, closed once it
// is full, expired or closed by its creator, and completed once its target is
// reached. DeriveStatus is the single place where the automatic transitions
// are computed; completed is terminal.
package models
