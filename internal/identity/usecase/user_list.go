package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
)

type UserListRow struct {
	Email     string
	FullName  string
	Role      string
	AvatarURL string
	CreatedAt time.Time
}

type UserListOutput struct {
	Users []UserListRow
	Total int
}

// UserList returns the whole directory, newest accounts first. The route is
// admin gated; the usecase re-checks the role claim as a backstop.
func (s *Usecase) UserList(ctx context.Context) (*UserListOutput, error) {
	ctx, span := s.startSpan(ctx, "UserList")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}
	if entity.RoleFromString(clm.UserRole) != entity.RoleAdmin {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	users, err := s.repoUserDir.ListUsers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list users", "error", err)
		return nil, goerror.NewServer(err)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})

	rows := lo.Map(users, func(u entity.User, _ int) UserListRow {
		return UserListRow{
			Email:     u.Email,
			FullName:  u.FullName,
			Role:      u.Role.String(),
			AvatarURL: u.AvatarURL,
			CreatedAt: u.CreatedAt,
		}
	})

	return &UserListOutput{Users: rows, Total: len(rows)}, nil
}
