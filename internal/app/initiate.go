package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

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

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          true,
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.bcrypt = hash.NewBcrypt(a.config.GetInt("hash.bcrypt.cost"), a.config.GetString("hash.bcrypt.pepper"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake()
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow
}

func (a *App) initJWT() {
	defaultJWT, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	if err != nil {
		slog.Error("failed to init jwt token", "error", err)
		os.Exit(1)
	}
	a.jwt = defaultJWT
}

func (a *App) initDatabase() {
	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	a.dbConn = pool
}

func (a *App) initCache() {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
}

func (a *App) initMail() {
	smtp, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     a.config.GetString("mail.smtp.host"),
		Port:     a.config.GetInt("mail.smtp.port"),
		Username: a.config.GetString("mail.smtp.username"),
		Password: a.config.GetString("mail.smtp.password"),
		From:     a.config.GetString("mail.from"),
	})
	if err != nil {
		slog.Error("failed to init smtp mail", "error", err)
		os.Exit(1)
	}
	a.mail = smtp

	if endpoint := strings.TrimSpace(a.config.GetString("mail.api.endpoint")); endpoint != "" {
		api, err := mail.NewAPI(mail.APIConfig{
			Endpoint:   endpoint,
			Token:      a.config.GetString("mail.api.token"),
			From:       a.config.GetString("mail.from"),
			Timeout:    a.config.GetSecond("mail.api.timeout_seconds"),
			MaxRetries: uint64(a.config.GetUint("mail.api.max_retries")),
		})
		if err != nil {
			slog.Error("failed to init api mail", "error", err)
			os.Exit(1)
		}
		a.mail = mail.NewFailover(api, smtp)
	}
}

func (a *App) initStorage() {
	stg, err := storage.NewMinIO(storage.MinIOOptions{
		Endpoint:  strings.TrimSpace(a.config.GetString("storage.minio.endpoint")),
		AccessKey: strings.TrimSpace(a.config.GetString("storage.minio.access_key")),
		SecretKey: strings.TrimSpace(a.config.GetString("storage.minio.secret_key")),
		Region:    strings.TrimSpace(a.config.GetString("storage.minio.region")),
		UseSSL:    a.config.GetBool("storage.minio.use_ssl"),
	})
	if err != nil {
		slog.Error("failed to init storage", "error", err)
		os.Exit(1)
	}

	a.storage = stg
}

func (a *App) initOTP() {
	var store otp.Store
	switch a.config.GetString("otp.store") {
	case "redis":
		store = otp.NewRedis(a.cacheConn)
	default:
		store = otp.NewMemory()
	}

	a.otp = otp.NewAuthority(otp.Config{
		Digits:         a.config.GetInt("otp.digits"),
		TTL:            a.config.GetSecond("otp.ttl_seconds"),
		MaxAttempts:    a.config.GetInt("otp.max_attempts"),
		ResendCooldown: a.config.GetSecond("otp.resend_cooldown_seconds"),
		SendTimeout:    a.config.GetSecond("otp.send_timeout_seconds"),
		Sender:         a.config.GetString("mail.from"),
		Subject:        a.config.GetString("otp.subject"),
		LogPlainCode:   a.config.GetBool("otp.log_plain_code"),
	}, store, a.mail, a.clock)

	a.otpSweeper = otp.NewSweeper(a.otp, a.config.GetSecond("otp.sweep_interval_seconds"))
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Mail",
			fn: func(context.Context) error {
				return a.mail.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				a.dbConn.Close()

				return nil
			},
		},
		{
			name: "Storage",
			fn: func(context.Context) error {
				return a.storage.Close()
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
