package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type User struct {
	ID           string    `gorm:"primaryKey"           json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null"             json:"-"`
	Name         string    `gorm:"not null"             json:"name"`
	Role         string    `gorm:"not null"             json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// App is a submitted application. UploaderName is a snapshot of the
// uploader's display name at submission time and is never re-synced.
// Seq preserves insertion order for createdAt ties in listings.
type App struct {
	ID              string    `gorm:"primaryKey"     json:"id"`
	Name            string    `gorm:"not null"       json:"name"`
	PackageName     string    `gorm:"not null"       json:"packageName"`
	Description     string    `gorm:"not null"       json:"description"`
	Version         string    `gorm:"not null"       json:"version"`
	IconURL         string    `gorm:"not null"       json:"iconUrl"`
	APKURL          string    `gorm:"not null"       json:"apkUrl"`
	FileSize        int64     `json:"fileSize"`
	Status          string    `gorm:"not null;index" json:"status"`
	UploaderID      string    `gorm:"not null;index" json:"uploaderId"`
	UploaderName    string    `gorm:"not null"       json:"uploaderName"`
	RejectionReason *string   `json:"rejectionReason,omitempty"`
	Downloads       int64     `gorm:"not null;default:0" json:"downloads"`
	Seq             int64     `gorm:"index"          json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
