package chat

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clckenya/chatd/internal/chat/inbound"
	"github.com/clckenya/chatd/internal/chat/outbound/db"
	"github.com/clckenya/chatd/internal/chat/outbound/objstore"
	"github.com/clckenya/chatd/internal/chat/usecase"
	"github.com/clckenya/chatd/internal/pkg/clock"
	"github.com/clckenya/chatd/internal/pkg/instrument"
	"github.com/clckenya/chatd/internal/pkg/router"
	"github.com/clckenya/chatd/internal/pkg/storage"
	"github.com/clckenya/chatd/internal/pkg/uid"
	"github.com/clckenya/chatd/internal/pkg/validator"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Storage    storage.Storage            `validate:"required"`
	Bucket     string                     `validate:"required"`
	Router     *router.Router             `validate:"required"`
	NumberID   uid.NumberID               `validate:"required"`
	StringID   uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	msgDB := db.NewDB(dep.DBConn, dep.Instrument)
	objStore := objstore.NewObjStore(dep.Storage, dep.Bucket, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:      msgDB,
		ObjectStore: objStore,
		Validator:   dep.Validator,
		NumberID:    dep.NumberID,
		StringID:    dep.StringID,
		Clock:       dep.Clock,
		Instrument:  dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
