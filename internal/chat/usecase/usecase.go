package usecase

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/clckenya/chatd/internal/chat/entity"
	"github.com/clckenya/chatd/internal/pkg/clock"
	"github.com/clckenya/chatd/internal/pkg/goerror"
	"github.com/clckenya/chatd/internal/pkg/instrument"
	"github.com/clckenya/chatd/internal/pkg/jwt"
	"github.com/clckenya/chatd/internal/pkg/uid"
	"github.com/clckenya/chatd/internal/pkg/validator"
)

type repoDB interface {
	CreateMessage(ctx context.Context, msg entity.Message) error
	GetMessage(ctx context.Context, id int64) (*entity.Message, error)
	ListMessages(ctx context.Context, after int64, limit int32) ([]entity.Message, error)
	SetMessagePinned(ctx context.Context, id int64, pinned bool) error
}

type objectStore interface {
	Upload(ctx context.Context, key, contentType string, size int64, r io.Reader) (entity.Attachment, error)
	DownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type Usecase struct {
	repoDB    repoDB
	objStore  objectStore
	validator validator.Validator
	numID     uid.NumberID
	strID     uid.StringID
	clock     clock.Clocker
	ins       instrument.Instrumentation
}

type Dependency struct {
	RepoDB      repoDB
	ObjectStore objectStore
	Validator   validator.Validator
	NumberID    uid.NumberID
	StringID    uid.StringID
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		objStore:  dep.ObjectStore,
		validator: dep.Validator,
		numID:     dep.NumberID,
		strID:     dep.StringID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("chat.usecase").Start(ctx, name)
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	return clm, nil
}
