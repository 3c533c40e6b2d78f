package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clckenya/chatd/internal/chat/entity"
	identityentity "github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
	"github.com/clckenya/chatd/internal/pkg/instrument"
	"github.com/clckenya/chatd/internal/pkg/jwt"
	"github.com/clckenya/chatd/internal/pkg/validator"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeRepoDB struct {
	mu       sync.Mutex
	messages map[int64]entity.Message
}

func newFakeRepoDB() *fakeRepoDB {
	return &fakeRepoDB{messages: make(map[int64]entity.Message)}
}

func (f *fakeRepoDB) CreateMessage(_ context.Context, msg entity.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[msg.ID]; ok {
		return goerror.ErrConflict
	}
	f.messages[msg.ID] = msg
	return nil
}

func (f *fakeRepoDB) GetMessage(_ context.Context, id int64) (*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &msg, nil
}

func (f *fakeRepoDB) ListMessages(_ context.Context, after int64, limit int32) ([]entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Message
	for _, msg := range f.messages {
		if msg.ID > after {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepoDB) SetMessagePinned(_ context.Context, id int64, pinned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return goerror.ErrNotFound
	}
	msg.Pinned = pinned
	f.messages[id] = msg
	return nil
}

type fakeObjStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjStore() *fakeObjStore {
	return &fakeObjStore{objects: make(map[string][]byte)}
}

func (f *fakeObjStore) Upload(_ context.Context, key, _ string, _ int64, r io.Reader) (entity.Attachment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return entity.Attachment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return entity.Attachment{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeObjStore) DownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", errors.New("object missing")
	}
	return "https://files.test/" + key, nil
}

func (f *fakeObjStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type fakeNumberID struct {
	mu   sync.Mutex
	next int64
}

func (f *fakeNumberID) Generate() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return f.next
}

type fakeStringID struct {
	mu   sync.Mutex
	next int
}

func (f *fakeStringID) Generate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("file-%04d", f.next)
}

func newTestUsecase(t *testing.T) (*Usecase, *fakeRepoDB, *fakeObjStore, *fakeClock) {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	clk := &fakeClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	repo := newFakeRepoDB()
	store := newFakeObjStore()

	uc := New(Dependency{
		RepoDB:      repo,
		ObjectStore: store,
		Validator:   v,
		NumberID:    &fakeNumberID{},
		StringID:    &fakeStringID{},
		Clock:       clk,
		Instrument:  instrument.NewNoop(),
	})

	return uc, repo, store, clk
}

func authCtx(email string, role identityentity.Role) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{
		UserEmail: email,
		UserRole:  role.String(),
	})
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected goerror, got %v", err)
	}
	return gerr.StatusCode()
}

func TestMessageSendRequiresAuth(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t)

	_, err := uc.MessageSend(context.Background(), MessageSendInput{Text: "hello"})
	if got := statusOf(t, err); got != 401 {
		t.Fatalf("expected 401, got %d", got)
	}
}

func TestMessageSendAndList(t *testing.T) {
	uc, _, _, clk := newTestUsecase(t)
	ctx := authCtx("jo@example.com", identityentity.RoleMember)

	first, err := uc.MessageSend(ctx, MessageSendInput{Text: "habari"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if first.Message.Sender != "jo@example.com" {
		t.Fatalf("unexpected sender %q", first.Message.Sender)
	}
	if !first.Message.CreatedAt.Equal(clk.Now()) {
		t.Fatalf("unexpected created_at %v", first.Message.CreatedAt)
	}

	clk.Advance(time.Minute)
	second, err := uc.MessageSend(ctx, MessageSendInput{Text: "mambo"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	out, err := uc.MessageList(ctx, MessageListInput{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out.Messages))
	}
	if out.Messages[0].Message.Text != "habari" || out.Messages[1].Message.Text != "mambo" {
		t.Fatalf("messages out of order: %+v", out.Messages)
	}
	if out.NextAfter != second.Message.ID {
		t.Fatalf("expected cursor %d, got %d", second.Message.ID, out.NextAfter)
	}
}

func TestMessageListCursorSkipsSeenMessages(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t)
	ctx := authCtx("jo@example.com", identityentity.RoleMember)

	var lastSeen int64
	for i := 0; i < 5; i++ {
		out, err := uc.MessageSend(ctx, MessageSendInput{Text: fmt.Sprintf("msg %d", i)})
		if err != nil {
			t.Fatalf("send failed: %v", err)
		}
		if i == 2 {
			lastSeen = out.Message.ID
		}
	}

	out, err := uc.MessageList(ctx, MessageListInput{After: lastSeen})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("expected 2 new messages, got %d", len(out.Messages))
	}
	if out.Messages[0].Message.Text != "msg 3" {
		t.Fatalf("unexpected first new message %q", out.Messages[0].Message.Text)
	}
}

func TestMessageSendEmpty(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t)
	ctx := authCtx("jo@example.com", identityentity.RoleMember)

	_, err := uc.MessageSend(ctx, MessageSendInput{})
	if got := statusOf(t, err); got != 422 {
		t.Fatalf("expected 422, got %d", got)
	}
}

func TestMessageSendUnknownAttachment(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t)
	ctx := authCtx("jo@example.com", identityentity.RoleMember)

	_, err := uc.MessageSend(ctx, MessageSendInput{AttachmentKey: "no-such-key"})
	if got := statusOf(t, err); got != 404 {
		t.Fatalf("expected 404, got %d", got)
	}
}

func TestMessageWithAttachmentGetsSignedURL(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t)
	ctx := authCtx("jo@example.com", identityentity.RoleMember)

	up, err := uc.AttachmentUpload(ctx, AttachmentUploadInput{
		Filename:    "photo.JPG",
		ContentType: "image/jpeg",
		Size:        4,
		Body:        bytes.NewReader([]byte("data")),
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if !strings.HasSuffix(up.Attachment.Key, ".jpg") {
		t.Fatalf("expected lowercased extension on key, got %q", up.Attachment.Key)
	}
	if up.Attachment.URL == "" {
		t.Fatal("expected a download URL")
	}

	if _, err := uc.MessageSend(ctx, MessageSendInput{
		Text:          "see attached",
		AttachmentKey: up.Attachment.Key,
	}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	out, err := uc.MessageList(ctx, MessageListInput{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(out.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(out.Messages))
	}
	if out.Messages[0].AttachmentURL == "" {
		t.Fatal("expected the listed message to carry a signed URL")
	}
}

func TestAttachmentUploadRejectsOversize(t *testing.T) {
	uc, _, store, _ := newTestUsecase(t)
	ctx := authCtx("jo@example.com", identityentity.RoleMember)

	_, err := uc.AttachmentUpload(ctx, AttachmentUploadInput{
		Filename:    "big.bin",
		ContentType: "application/octet-stream",
		Size:        -1,
		Body:        io.LimitReader(zeroReader{}, maxAttachmentSize+10),
	})
	if got := statusOf(t, err); got != 422 {
		t.Fatalf("expected 422, got %d", got)
	}

	store.mu.Lock()
	remaining := len(store.objects)
	store.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected oversize object to be removed, %d left", remaining)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestMessagePinRequiresAdmin(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t)

	memberCtx := authCtx("jo@example.com", identityentity.RoleMember)
	sent, err := uc.MessageSend(memberCtx, MessageSendInput{Text: "pin me"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	_, err = uc.MessagePin(memberCtx, MessagePinInput{MessageID: sent.Message.ID, Pinned: true})
	if got := statusOf(t, err); got != 403 {
		t.Fatalf("expected 403 for member, got %d", got)
	}

	adminCtx := authCtx("admin@example.com", identityentity.RoleAdmin)
	out, err := uc.MessagePin(adminCtx, MessagePinInput{MessageID: sent.Message.ID, Pinned: true})
	if err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	if !out.Message.Pinned {
		t.Fatal("expected message to be pinned")
	}

	out, err = uc.MessagePin(adminCtx, MessagePinInput{MessageID: sent.Message.ID, Pinned: false})
	if err != nil {
		t.Fatalf("unpin failed: %v", err)
	}
	if out.Message.Pinned {
		t.Fatal("expected message to be unpinned")
	}
}

func TestMessagePinMissingMessage(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t)
	adminCtx := authCtx("admin@example.com", identityentity.RoleAdmin)

	_, err := uc.MessagePin(adminCtx, MessagePinInput{MessageID: 999, Pinned: true})
	if got := statusOf(t, err); got != 404 {
		t.Fatalf("expected 404, got %d", got)
	}
}

func TestMessageListLimitClamped(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t)
	ctx := authCtx("jo@example.com", identityentity.RoleMember)

	for i := 0; i < 60; i++ {
		if _, err := uc.MessageSend(ctx, MessageSendInput{Text: fmt.Sprintf("msg %d", i)}); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}

	out, err := uc.MessageList(ctx, MessageListInput{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(out.Messages) != defaultPageSize {
		t.Fatalf("expected default page of %d, got %d", defaultPageSize, len(out.Messages))
	}
}
