package models

import "time"

// Profile is the public display row, keyed 1:1 by the user's ID.
// DisplayName is NOT NULL; every write that depends on that invariant must go
// through the ensure-profile upsert first.
type Profile struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	DisplayName string    `json:"displayName" gorm:"column:display_name;not null"`
	AvatarPath  string    `json:"avatarPath" gorm:"column:avatar_path"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
