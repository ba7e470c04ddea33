package authapi

import (
	"time"

	"resumeagent/cmd/identity"
)

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// messageResponse is the body for endpoints whose real payload travels in
// cookies. Tokens never appear in response bodies.
type messageResponse struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

type principalResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	Role            string    `json:"role"`
	Plan            string    `json:"plan"`
	EmailVerified   bool      `json:"email_verified"`
	GenerationLimit int       `json:"generation_limit"`
	GenerationUsed  int       `json:"generation_used"`
	CreatedAt       time.Time `json:"created_at"`
}

type meResponse struct {
	User principalResponse `json:"user"`
}

func toPrincipalResponse(p identity.Principal) principalResponse {
	return principalResponse{
		ID:              p.ID,
		Email:           p.Email,
		FullName:        p.FullName,
		Role:            string(p.Role),
		Plan:            string(p.Plan),
		EmailVerified:   p.EmailVerified,
		GenerationLimit: p.GenerationLimit,
		GenerationUsed:  p.GenerationUsed,
		CreatedAt:       p.CreatedAt,
	}
}
