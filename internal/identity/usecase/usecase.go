package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/clock"
	"github.com/clckenya/chatd/internal/pkg/goerror"
	"github.com/clckenya/chatd/internal/pkg/goroutine"
	"github.com/clckenya/chatd/internal/pkg/hash"
	"github.com/clckenya/chatd/internal/pkg/instrument"
	"github.com/clckenya/chatd/internal/pkg/jwt"
	"github.com/clckenya/chatd/internal/pkg/mail"
	"github.com/clckenya/chatd/internal/pkg/otp"
	"github.com/clckenya/chatd/internal/pkg/validator"
)

type repoUserDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserAuthInfo(ctx context.Context, email string) (*entity.UserAuthInfo, error)
	CreateUser(ctx context.Context, user entity.User, passwordHash string) error
	UpdateUserField(ctx context.Context, email, field, value string, updatedAt time.Time) error
	ListUsers(ctx context.Context) ([]entity.User, error)
}

type otpAuthority interface {
	Issue(ctx context.Context, email string, payload []byte) (otp.Handle, error)
	Reissue(ctx context.Context, email string) (otp.Handle, error)
	Verify(ctx context.Context, email, code string, onVerified func(payload []byte) error) (otp.VerifyResult, error)
}

type Usecase struct {
	repoUserDir repoUserDirectory
	otp         otpAuthority
	validator   validator.Validator
	bcrypt      hash.Hash
	clock       clock.Clocker
	jwt         jwt.JWT
	mailer      mail.Mail
	goroutine   *goroutine.Manager
	ins         instrument.Instrumentation
}

type Dependency struct {
	RepoUserDir repoUserDirectory
	OTP         otpAuthority
	Validator   validator.Validator
	Bcrypt      hash.Hash
	Clock       clock.Clocker
	JWT         jwt.JWT
	Mailer      mail.Mail
	Goroutine   *goroutine.Manager
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoUserDir: dep.RepoUserDir,
		otp:         dep.OTP,
		validator:   dep.Validator,
		bcrypt:      dep.Bcrypt,
		clock:       dep.Clock,
		jwt:         dep.JWT,
		mailer:      dep.Mailer,
		goroutine:   dep.Goroutine,
		ins:         dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	return clm, nil
}
