// Package userdb is the Redis-backed user directory: one hash per account
// keyed by email, plus a set index for listings.
package userdb

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
	"github.com/clckenya/chatd/internal/pkg/instrument"
)

const (
	userKeyPrefix = "user:"
	usersIndexKey = "users"
)

type UserDB struct {
	client *redis.Client
	ins    instrument.Instrumentation
}

func NewUserDB(client *redis.Client, ins instrument.Instrumentation) *UserDB {
	return &UserDB{client: client, ins: ins}
}

func (s *UserDB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.outbound.userdb").Start(ctx, name)
}

func (s *UserDB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *UserDB) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	defer func() { s.endSpan(span, err) }()

	fields, err := s.client.HGetAll(ctx, userKeyPrefix+email).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, goerror.ErrNotFound
	}

	return userFromFields(fields), nil
}

func (s *UserDB) GetUserAuthInfo(ctx context.Context, email string) (_ *entity.UserAuthInfo, err error) {
	ctx, span := s.startSpan(ctx, "GetUserAuthInfo")
	defer func() { s.endSpan(span, err) }()

	fields, err := s.client.HGetAll(ctx, userKeyPrefix+email).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, goerror.ErrNotFound
	}

	return &entity.UserAuthInfo{
		Email:    fields["email"],
		FullName: fields[entity.FieldFullName],
		Role:     entity.RoleFromString(fields["role"]),
		Password: fields[entity.FieldPassword],
	}, nil
}

func (s *UserDB) CreateUser(ctx context.Context, user entity.User, passwordHash string) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	// SADD is the uniqueness gate: membership means the account exists.
	added, err := s.client.SAdd(ctx, usersIndexKey, user.Email).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return goerror.ErrConflict
	}

	err = s.client.HSet(ctx, userKeyPrefix+user.Email,
		"email", user.Email,
		entity.FieldFullName, user.FullName,
		"role", user.Role.String(),
		entity.FieldAvatarURL, user.AvatarURL,
		entity.FieldPassword, passwordHash,
		"created_at", user.CreatedAt.Format(time.RFC3339),
		"updated_at", user.UpdatedAt.Format(time.RFC3339),
	).Err()
	if err != nil {
		// Roll the index back so a retry can succeed.
		if remErr := s.client.SRem(ctx, usersIndexKey, user.Email).Err(); remErr != nil {
			return errors.Join(err, remErr)
		}
		return err
	}
	return nil
}

func (s *UserDB) UpdateUserField(ctx context.Context, email, field, value string, updatedAt time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateUserField")
	defer func() { s.endSpan(span, err) }()

	exists, err := s.client.SIsMember(ctx, usersIndexKey, email).Result()
	if err != nil {
		return err
	}
	if !exists {
		return goerror.ErrNotFound
	}

	return s.client.HSet(ctx, userKeyPrefix+email,
		field, value,
		"updated_at", updatedAt.UTC().Format(time.RFC3339),
	).Err()
}

func (s *UserDB) ListUsers(ctx context.Context) (_ []entity.User, err error) {
	ctx, span := s.startSpan(ctx, "ListUsers")
	defer func() { s.endSpan(span, err) }()

	emails, err := s.client.SMembers(ctx, usersIndexKey).Result()
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(emails))
	for _, email := range emails {
		cmds = append(cmds, pipe.HGetAll(ctx, userKeyPrefix+email))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	users := make([]entity.User, 0, len(cmds))
	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		users = append(users, *userFromFields(fields))
	}
	return users, nil
}

func userFromFields(fields map[string]string) *entity.User {
	createdAt, _ := time.Parse(time.RFC3339, fields["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339, fields["updated_at"])

	return &entity.User{
		Email:     fields["email"],
		FullName:  fields[entity.FieldFullName],
		Role:      entity.RoleFromString(fields["role"]),
		AvatarURL: fields[entity.FieldAvatarURL],
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}
