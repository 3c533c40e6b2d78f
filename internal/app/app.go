package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clckenya/chatd/internal/pkg/clock"
	"github.com/clckenya/chatd/internal/pkg/config"
	"github.com/clckenya/chatd/internal/pkg/goroutine"
	"github.com/clckenya/chatd/internal/pkg/hash"
	"github.com/clckenya/chatd/internal/pkg/instrument"
	"github.com/clckenya/chatd/internal/pkg/jwt"
	"github.com/clckenya/chatd/internal/pkg/mail"
	"github.com/clckenya/chatd/internal/pkg/otp"
	"github.com/clckenya/chatd/internal/pkg/router"
	"github.com/clckenya/chatd/internal/pkg/storage"
	"github.com/clckenya/chatd/internal/pkg/uid"
	"github.com/clckenya/chatd/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	bcrypt    hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT

	// resources
	dbConn     *pgxpool.Pool
	cacheConn  *redis.Client
	mail       mail.Mail
	storage    storage.Storage
	otp        *otp.Authority
	otpSweeper *otp.Sweeper

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initStorage()
	app.initOTP()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
