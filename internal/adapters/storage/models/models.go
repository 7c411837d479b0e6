package models

import (
	"encoding/json"
	"time"
)

// User - учетная запись. Email уникален.
type User struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Username     string    `json:"username" gorm:"size:200"`
	Email        string    `json:"email" gorm:"size:200;uniqueIndex:idx_users_email;not null"`
	PasswordHash string    `json:"-" gorm:"size:355;not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// cachedUser keeps the password hash when the user goes through the cache.
type cachedUser struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) MarshalBinary() ([]byte, error) {
	return json.Marshal(cachedUser(u))
}

func (u *User) UnmarshalBinary(data []byte) error {
	var c cachedUser
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	*u = User(c)
	return nil
}
