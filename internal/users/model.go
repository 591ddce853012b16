package users

import "time"

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	UseCase        string    `json:"use_case,omitempty"`
	ReferralSource string    `json:"referral_source,omitempty"`
	PictureURL     string    `json:"picture_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
