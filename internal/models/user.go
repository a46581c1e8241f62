package models

import (
	"time"
)

type User struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	Username       string     `json:"username" gorm:"uniqueIndex;not null"`
	Email          string     `json:"email" gorm:"uniqueIndex;not null"`
	Password       string     `json:"-" gorm:"not null"`
	IsActive       bool       `json:"is_active" gorm:"not null;default:false"`
	FullName       string     `json:"full_name"`
	BirthDate      *time.Time `json:"birth_date" gorm:"type:date"`
	Location       string     `json:"location"`
	Bio            string     `json:"bio"`
	ProfilePicture string     `json:"profile_picture"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserProfile is a user with follow counters attached.
type UserProfile struct {
	User
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
}

type Follow struct {
	FollowerID int64     `json:"follower_id" gorm:"primaryKey;autoIncrement:false"`
	FollowedID int64     `json:"followed_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time `json:"created_at"`

	Follower *User `json:"-" gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
	Followed *User `json:"-" gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE"`
}

type ReviewLike struct {
	UserID    int64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	ReviewID  int64     `json:"review_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`

	User   *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Review *WatchLog `json:"-" gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

func (Follow) TableName() string {
	return "user_follows"
}

func (ReviewLike) TableName() string {
	return "review_likes"
}
