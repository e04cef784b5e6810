package transport

import "github.com/Runteryaa/RunStore/internal/models"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserView is the public projection of a user; the password hash never
// leaves the service.
type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func UserViewFrom(u *models.User) UserView {
	return UserView{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

type CreateAppRequest struct {
	Name        string `json:"name"`
	PackageName string `json:"packageName"`
	Description string `json:"description"`
	Version     string `json:"version"`
	IconURL     string `json:"iconUrl"`
	APKURL      string `json:"apkUrl"`
	FileSize    int64  `json:"fileSize"`
}

type UpdateStatusRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason"`
}
