package identity

import (
	"github.com/redis/go-redis/v9"

	"github.com/clckenya/chatd/internal/identity/inbound"
	"github.com/clckenya/chatd/internal/identity/outbound/userdb"
	"github.com/clckenya/chatd/internal/identity/usecase"
	"github.com/clckenya/chatd/internal/pkg/clock"
	"github.com/clckenya/chatd/internal/pkg/goroutine"
	"github.com/clckenya/chatd/internal/pkg/hash"
	"github.com/clckenya/chatd/internal/pkg/instrument"
	"github.com/clckenya/chatd/internal/pkg/jwt"
	"github.com/clckenya/chatd/internal/pkg/mail"
	"github.com/clckenya/chatd/internal/pkg/otp"
	"github.com/clckenya/chatd/internal/pkg/router"
	"github.com/clckenya/chatd/internal/pkg/validator"
)

type Dependency struct {
	CacheConn  *redis.Client              `validate:"required"`
	Router     *router.Router             `validate:"required"`
	OTP        *otp.Authority             `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Bcrypt     hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
	Mailer     mail.Mail                  `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	userDir := userdb.NewUserDB(dep.CacheConn, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoUserDir: userDir,
		OTP:         dep.OTP,
		Validator:   dep.Validator,
		Bcrypt:      dep.Bcrypt,
		Clock:       dep.Clock,
		JWT:         dep.JWT,
		Mailer:      dep.Mailer,
		Goroutine:   dep.Goroutine,
		Instrument:  dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
