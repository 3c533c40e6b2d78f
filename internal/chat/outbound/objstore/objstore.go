// Package objstore adapts the shared object storage client to chat
// attachment semantics.
package objstore

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clckenya/chatd/internal/chat/entity"
	"github.com/clckenya/chatd/internal/pkg/instrument"
	"github.com/clckenya/chatd/internal/pkg/storage"
)

type ObjStore struct {
	store  storage.Storage
	bucket string
	ins    instrument.Instrumentation
}

func NewObjStore(store storage.Storage, bucket string, ins instrument.Instrumentation) *ObjStore {
	return &ObjStore{
		store:  store,
		bucket: bucket,
		ins:    ins,
	}
}

func (s *ObjStore) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("chat.outbound.objstore").Start(ctx, name)
}

func (s *ObjStore) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *ObjStore) Upload(ctx context.Context, key, contentType string, size int64, r io.Reader) (att entity.Attachment, err error) {
	ctx, span := s.startSpan(ctx, "Upload")
	defer func() { s.endSpan(span, err) }()

	info, err := s.store.PutObject(ctx, s.bucket, key, r, storage.PutOptions{
		Size:        size,
		ContentType: contentType,
	})
	if err != nil {
		return entity.Attachment{}, err
	}

	return entity.Attachment{
		Key:         info.Key,
		ContentType: contentType,
		Size:        info.Size,
	}, nil
}

func (s *ObjStore) DownloadURL(ctx context.Context, key string, expiry time.Duration) (url string, err error) {
	ctx, span := s.startSpan(ctx, "DownloadURL")
	defer func() { s.endSpan(span, err) }()

	url, err = s.store.PresignGet(ctx, s.bucket, key, expiry)
	return url, err
}

func (s *ObjStore) Delete(ctx context.Context, key string) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	err = s.store.DeleteObject(ctx, s.bucket, key)
	return err
}

func (s *ObjStore) Exists(ctx context.Context, key string) (ok bool, err error) {
	ctx, span := s.startSpan(ctx, "Exists")
	defer func() { s.endSpan(span, err) }()

	_, err = s.store.StatObject(ctx, s.bucket, key)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			err = nil
			return false, nil
		}
		return false, err
	}

	return true, nil
}
