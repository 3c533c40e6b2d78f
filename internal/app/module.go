package app

import (
	"log/slog"
	"os"

	"github.com/clckenya/chatd/internal/chat"
	"github.com/clckenya/chatd/internal/identity"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.identity.enabled") {
		if err := identity.New(identity.Dependency{
			CacheConn:  a.cacheConn,
			Router:     a.router,
			OTP:        a.otp,
			Instrument: a.ins,
			Bcrypt:     a.bcrypt,
			Clock:      a.clock,
			Validator:  a.validator,
			JWT:        a.jwt,
			Mailer:     a.mail,
			Goroutine:  a.goroutine,
		}); err != nil {
			slog.Error("failed to init module identity", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.chat.enabled") {
		if err := chat.New(chat.Dependency{
			DBConn:     a.dbConn,
			Storage:    a.storage,
			Bucket:     a.config.GetString("storage.minio.bucket"),
			Router:     a.router,
			NumberID:   a.uid,
			StringID:   a.uuid,
			Clock:      a.clock,
			Validator:  a.validator,
			Instrument: a.ins,
		}); err != nil {
			slog.Error("failed to init module chat", "error", err)
			os.Exit(1)
		}
	}
}
