package models

// Pledge is a canonical pledge text identified by a human-readable code.
// Pledges are seeded once and never mutated at runtime.
type Pledge struct {
	ID         string `db:"id" json:"id"`
	PledgeCode string `db:"pledge_code" json:"pledgeCode"`
	PledgeText string `db:"pledge_text" json:"pledgeText"`
}
