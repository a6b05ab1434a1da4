package models

import "gorm.io/gorm"

// User is the auth identity row. Public display data lives in Profile;
// DisplayName here is only the sign-up metadata hint used when a profile
// row has to be derived.
type User struct {
	gorm.Model
	Email       string `json:"email" gorm:"uniqueIndex;not null"`
	Password    string `json:"-" gorm:"not null"`
	DisplayName string `json:"displayName"`
}
