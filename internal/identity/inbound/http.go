package inbound

import (
	"context"

	"github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/identity/usecase"
	"github.com/clckenya/chatd/internal/pkg/router"
)

type uc interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.RegisterOutput, error)
	RegisterVerify(ctx context.Context, in usecase.RegisterVerifyInput) error
	RegisterResend(ctx context.Context, in usecase.RegisterResendInput) (*usecase.RegisterResendOutput, error)

	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)

	PasswordForgot(ctx context.Context, in usecase.PasswordForgotInput) error
	PasswordReset(ctx context.Context, in usecase.PasswordResetInput) error

	Profile(ctx context.Context) (*usecase.ProfileOutput, error)
	ProfileUpdate(ctx context.Context, in usecase.ProfileUpdateInput) error

	UserList(ctx context.Context) (*usecase.UserListOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Registration with email verification
	r.POST("/api/v1/identity/register", end.Register)
	r.POST("/api/v1/identity/register/verify", end.RegisterVerify)
	r.POST("/api/v1/identity/register/resend", end.RegisterResend)

	// Authentication
	r.POST("/api/v1/identity/login", end.Login)

	// Password recovery
	r.POST("/api/v1/identity/password/forgot", end.PasswordForgot)
	r.POST("/api/v1/identity/password/reset", end.PasswordReset)

	// Profile (need authenticated)
	r.GET("/api/v1/identity/profile", end.Profile)
	r.PUT("/api/v1/identity/profile", end.ProfileUpdate)

	// User directory (admins only)
	r.GET("/api/v1/identity/users", end.UserList, router.RequireRole(entity.RoleAdmin.String()))
}
