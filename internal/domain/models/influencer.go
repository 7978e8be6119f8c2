package models

import "time"

type Influencer struct {
	ID              string    `db:"id" json:"id"`
	TwitterHandle   string    `db:"twitter_handle" json:"twitter_handle"`
	DisplayName     string    `db:"display_name" json:"display_name"`
	ProfileImageURL string    `db:"profile_image_url" json:"profile_image_url,omitempty"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	Priority        int       `db:"priority" json:"priority"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
