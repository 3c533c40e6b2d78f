package inbound

import (
	"github.com/samber/lo"

	"github.com/clckenya/chatd/internal/identity/usecase"
	"github.com/clckenya/chatd/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for registration, authentication, and
// directory workflows.
type HTTPEndpoint struct {
	uc uc
}

// Register starts a registration by emailing a verification code. The
// account is created only once the code is confirmed.
func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return nil, err
	}

	return RegisterResponse{
		Email:          resp.Email,
		EmailDelivered: resp.EmailDelivered,
		ExpiresAt:      resp.ExpiresAt,
	}, nil
}

// RegisterVerify confirms the emailed code and activates the account.
func (h *HTTPEndpoint) RegisterVerify(r *router.Request) (any, error) {
	var req RegisterVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.RegisterVerify(r.Context(), usecase.RegisterVerifyInput{
		Email: req.Email,
		Code:  req.Code,
	}); err != nil {
		return nil, err
	}

	return map[string]string{"email": req.Email}, nil
}

// RegisterResend emails a fresh verification code, subject to the cooldown.
func (h *HTTPEndpoint) RegisterResend(r *router.Request) (any, error) {
	var req RegisterResendRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RegisterResend(r.Context(), usecase.RegisterResendInput{Email: req.Email})
	if err != nil {
		return nil, err
	}

	return RegisterResendResponse{
		EmailDelivered: resp.EmailDelivered,
		ExpiresAt:      resp.ExpiresAt,
	}, nil
}

// Login authenticates a user and returns an access token.
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{
		AccessToken: resp.AccessToken,
		Email:       resp.Email,
		FullName:    resp.FullName,
		Role:        resp.Role,
	}, nil
}

// PasswordForgot emails a reset code. Always succeeds for well-formed input.
func (h *HTTPEndpoint) PasswordForgot(r *router.Request) (any, error) {
	var req PasswordForgotRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordForgot(r.Context(), usecase.PasswordForgotInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return map[string]string{"email": req.Email}, nil
}

// PasswordReset confirms the reset code and stores the new password.
func (h *HTTPEndpoint) PasswordReset(r *router.Request) (any, error) {
	var req PasswordResetRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordReset(r.Context(), usecase.PasswordResetInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	}); err != nil {
		return nil, err
	}

	return map[string]string{"email": req.Email}, nil
}

// Profile returns the authenticated user's account.
func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	resp, err := h.uc.Profile(r.Context())
	if err != nil {
		return nil, err
	}

	return ProfileResponse{
		Email:     resp.Email,
		FullName:  resp.FullName,
		Role:      resp.Role,
		AvatarURL: resp.AvatarURL,
		CreatedAt: resp.CreatedAt,
		UpdatedAt: resp.UpdatedAt,
	}, nil
}

// ProfileUpdate changes the authenticated user's display name.
func (h *HTTPEndpoint) ProfileUpdate(r *router.Request) (any, error) {
	var req ProfileUpdateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.ProfileUpdate(r.Context(), usecase.ProfileUpdateInput{FullName: req.FullName}); err != nil {
		return nil, err
	}

	return map[string]string{"full_name": req.FullName}, nil
}

// UserList returns the whole directory. Admin only.
func (h *HTTPEndpoint) UserList(r *router.Request) (any, error) {
	resp, err := h.uc.UserList(r.Context())
	if err != nil {
		return nil, err
	}

	return UserListResponse{
		Total: resp.Total,
		Users: lo.Map(resp.Users, func(u usecase.UserListRow, _ int) UserResponse {
			return UserResponse{
				Email:     u.Email,
				FullName:  u.FullName,
				Role:      u.Role,
				AvatarURL: u.AvatarURL,
				CreatedAt: u.CreatedAt,
			}
		}),
	}, nil
}
