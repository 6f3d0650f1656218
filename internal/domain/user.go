package domain

import "time"

// User is a registered platform member. Skills drive complementary
// matching: SkillsOffered is what the user can teach, SkillsRequired is
// what they want to learn.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	ProfileImage   string    `json:"profile_image,omitempty"`
	Education      string    `json:"education,omitempty"`
	Location       string    `json:"location,omitempty"`
	Profession     string    `json:"profession,omitempty"`
	SkillsOffered  []string  `json:"skills_offered"`
	SkillsRequired []string  `json:"skills_required"`
	Rating         float64   `json:"rating"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserSummary is the projection returned by user search and presence
// listings. It deliberately omits email and skills.
type UserSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profile_image,omitempty"`
	Profession   string `json:"profession,omitempty"`
}

// MatchedUser is a match result: a user who offers a required skill and
// needs an offered one.
type MatchedUser struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	ProfileImage   string   `json:"profile_image,omitempty"`
	Education      string   `json:"education,omitempty"`
	Location       string   `json:"location,omitempty"`
	Profession     string   `json:"profession,omitempty"`
	SkillsOffered  []string `json:"skills_offered"`
	SkillsRequired []string `json:"skills_required"`
	Rating         float64  `json:"rating"`
}

// SkillSet is a pair of skill lists extracted from a natural-language
// query, feeding the complementary match lookup.
type SkillSet struct {
	Required []string `json:"skills_required"`
	Offered  []string `json:"skills_offered"`
}

// Summary converts a full user record to its search projection.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		ProfileImage: u.ProfileImage,
		Profession:   u.Profession,
	}
}
