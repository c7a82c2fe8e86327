package models

import "time"

// Grade labels the school year a student belongs to. The accepted set is
// configured at startup rather than hard-coded.
type Grade string

func (g Grade) String() string { return string(g) }

// IsValid reports whether the grade is one of the allowed labels.
func (g Grade) IsValid(allowed []string) bool {
	for _, label := range allowed {
		if string(g) == label {
			return true
		}
	}
	return false
}

// Student represents one roster entry eligible to submit a pledge video.
// VideoSubmitted flips to true exactly once, together with FavoriteCelebrity
// and URL, when the submission transaction succeeds.
type Student struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Grade             Grade     `db:"grade" json:"grade"`
	PledgeCode        string    `db:"pledge_code" json:"pledgeCode"`
	FavoriteCelebrity *string   `db:"favorite_celebrity" json:"favoriteCelebrity,omitempty"`
	VideoSubmitted    bool      `db:"video_submitted" json:"videoSubmitted"`
	URL               *string   `db:"url" json:"url,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Grade     Grade
	Submitted *bool
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
