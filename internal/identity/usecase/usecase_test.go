package usecase

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
	"github.com/clckenya/chatd/internal/pkg/goroutine"
	"github.com/clckenya/chatd/internal/pkg/hash"
	"github.com/clckenya/chatd/internal/pkg/instrument"
	"github.com/clckenya/chatd/internal/pkg/jwt"
	"github.com/clckenya/chatd/internal/pkg/mail"
	"github.com/clckenya/chatd/internal/pkg/otp"
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
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

func (m *fakeMailer) Close() error { return nil }

func (m *fakeMailer) hasSubject(subject string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.sent {
		if msg.Subject == subject {
			return true
		}
	}
	return false
}

var reCode = regexp.MustCompile(`[0-9]{6}`)

// lastCode pulls the verification code out of the most recent email.
func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no email was sent")
	}

	code := reCode.FindString(m.sent[len(m.sent)-1].TextBody)
	if code == "" {
		t.Fatal("no code found in email body")
	}
	return code
}

type fakeUserDir struct {
	mu        sync.Mutex
	users     map[string]entity.User
	passwords map[string]string
}

func newFakeUserDir() *fakeUserDir {
	return &fakeUserDir{
		users:     make(map[string]entity.User),
		passwords: make(map[string]string),
	}
}

func (f *fakeUserDir) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[email]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserDir) GetUserAuthInfo(_ context.Context, email string) (*entity.UserAuthInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[email]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &entity.UserAuthInfo{
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
		Password: f.passwords[email],
	}, nil
}

func (f *fakeUserDir) CreateUser(_ context.Context, user entity.User, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[user.Email]; ok {
		return goerror.ErrConflict
	}
	f.users[user.Email] = user
	f.passwords[user.Email] = passwordHash
	return nil
}

func (f *fakeUserDir) UpdateUserField(_ context.Context, email, field, value string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[email]
	if !ok {
		return goerror.ErrNotFound
	}

	switch field {
	case entity.FieldPassword:
		f.passwords[email] = value
	case entity.FieldFullName:
		u.FullName = value
	}
	u.UpdatedAt = updatedAt
	f.users[email] = u
	return nil
}

func (f *fakeUserDir) ListUsers(_ context.Context) ([]entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users := make([]entity.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

type fakeJWT struct{}

func (fakeJWT) Generate(email, _ string) (string, error) { return "token-" + email, nil }
func (fakeJWT) Verify(string) (jwt.Claims, error)        { return jwt.Claims{}, nil }

func newTestUsecase(t *testing.T) (*Usecase, *fakeUserDir, *fakeClock, *fakeMailer) {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	clk := &fakeClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	mailer := &fakeMailer{}
	userDir := newFakeUserDir()
	bcrypt := hash.NewBcrypt(4, "")

	authority := otp.NewAuthority(otp.Config{}, otp.NewMemory(), mailer, clk)

	mgr := goroutine.NewManager(4)
	t.Cleanup(func() {
		if err := mgr.Wait(); err != nil {
			t.Errorf("background tasks failed: %v", err)
		}
	})

	uc := New(Dependency{
		RepoUserDir: userDir,
		OTP:         authority,
		Validator:   v,
		Bcrypt:      bcrypt,
		Clock:       clk,
		JWT:         fakeJWT{},
		Mailer:      mailer,
		Goroutine:   mgr,
		Instrument:  instrument.NewNoop(),
	})

	return uc, userDir, clk, mailer
}

func authCtx(email string, role entity.Role) context.Context {
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

func TestRegisterAndVerifyCreatesUser(t *testing.T) {
	uc, userDir, _, mailer := newTestUsecase(t)
	ctx := context.Background()

	out, err := uc.Register(ctx, RegisterInput{
		Email:    "Jo@Example.Com",
		Password: "Secret123!",
		FullName: "Jo Mwangi",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !out.EmailDelivered {
		t.Fatal("expected email delivered")
	}
	if out.Email != "jo@example.com" {
		t.Fatalf("expected normalized email, got %q", out.Email)
	}

	// No account exists until the code is confirmed.
	if _, err := userDir.GetUserByEmail(ctx, "jo@example.com"); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatal("account must not exist before verification")
	}

	err = uc.RegisterVerify(ctx, RegisterVerifyInput{Email: "jo@example.com", Code: mailer.lastCode(t)})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	user, err := userDir.GetUserByEmail(ctx, "jo@example.com")
	if err != nil {
		t.Fatalf("expected account after verification: %v", err)
	}
	if user.FullName != "Jo Mwangi" {
		t.Fatalf("unexpected full name %q", user.FullName)
	}
	if user.Role != entity.RoleMember {
		t.Fatalf("expected member role, got %q", user.Role)
	}

	// The welcome email goes out in the background.
	deadline := time.Now().Add(2 * time.Second)
	for !mailer.hasSubject("Welcome to CLC Kenya") {
		if time.Now().After(deadline) {
			t.Fatal("expected a welcome email after verification")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	uc, userDir, clk, _ := newTestUsecase(t)
	ctx := context.Background()

	_ = userDir.CreateUser(ctx, entity.User{Email: "jo@example.com", Role: entity.RoleMember, CreatedAt: clk.Now()}, "x")

	_, err := uc.Register(ctx, RegisterInput{
		Email:    "jo@example.com",
		Password: "Secret123!",
		FullName: "Jo Mwangi",
	})
	if status := statusOf(t, err); status != 409 {
		t.Fatalf("expected 409 conflict, got %d", status)
	}
}

func TestRegisterVerifyWrongCode(t *testing.T) {
	uc, _, _, mailer := newTestUsecase(t)
	ctx := context.Background()

	if _, err := uc.Register(ctx, RegisterInput{
		Email:    "jo@example.com",
		Password: "Secret123!",
		FullName: "Jo Mwangi",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	wrong := "000000"
	if wrong == mailer.lastCode(t) {
		wrong = "000001"
	}

	err := uc.RegisterVerify(ctx, RegisterVerifyInput{Email: "jo@example.com", Code: wrong})
	if status := statusOf(t, err); status != 401 {
		t.Fatalf("expected 401, got %d", status)
	}

	var gerr *goerror.Error
	_ = errors.As(err, &gerr)
	if gerr.Fields()["attempts_remaining"] != "2" {
		t.Fatalf("expected attempts_remaining=2, got %q", gerr.Fields()["attempts_remaining"])
	}
}

func TestRegisterVerifyWithoutPending(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t)

	err := uc.RegisterVerify(context.Background(), RegisterVerifyInput{Email: "ghost@example.com", Code: "123456"})
	if status := statusOf(t, err); status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestRegisterResendCooldown(t *testing.T) {
	uc, _, clk, mailer := newTestUsecase(t)
	ctx := context.Background()

	if _, err := uc.Register(ctx, RegisterInput{
		Email:    "jo@example.com",
		Password: "Secret123!",
		FullName: "Jo Mwangi",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := uc.RegisterResend(ctx, RegisterResendInput{Email: "jo@example.com"})
	if status := statusOf(t, err); status != 429 {
		t.Fatalf("expected 429 during cooldown, got %d", status)
	}

	var gerr *goerror.Error
	_ = errors.As(err, &gerr)
	if gerr.Fields()["retry_after_seconds"] == "" {
		t.Fatal("expected retry_after_seconds detail")
	}

	clk.Advance(120 * time.Second)

	out, err := uc.RegisterResend(ctx, RegisterResendInput{Email: "jo@example.com"})
	if err != nil {
		t.Fatalf("resend after cooldown failed: %v", err)
	}
	if !out.EmailDelivered {
		t.Fatal("expected resend email delivered")
	}

	// The reissued code still carries the original pending registration.
	if err := uc.RegisterVerify(ctx, RegisterVerifyInput{Email: "jo@example.com", Code: mailer.lastCode(t)}); err != nil {
		t.Fatalf("verify after resend failed: %v", err)
	}
}

func TestLogin(t *testing.T) {
	uc, _, _, mailer := newTestUsecase(t)
	ctx := context.Background()

	if _, err := uc.Register(ctx, RegisterInput{
		Email:    "jo@example.com",
		Password: "Secret123!",
		FullName: "Jo Mwangi",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := uc.RegisterVerify(ctx, RegisterVerifyInput{Email: "jo@example.com", Code: mailer.lastCode(t)}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	out, err := uc.Login(ctx, LoginInput{Email: "jo@example.com", Password: "Secret123!"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if out.AccessToken != "token-jo@example.com" {
		t.Fatalf("unexpected token %q", out.AccessToken)
	}

	_, err = uc.Login(ctx, LoginInput{Email: "jo@example.com", Password: "WrongPass1!"})
	if status := statusOf(t, err); status != 401 {
		t.Fatalf("expected 401 for wrong password, got %d", status)
	}

	_, err = uc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Secret123!"})
	if status := statusOf(t, err); status != 401 {
		t.Fatalf("expected 401 for unknown email, got %d", status)
	}
}

func TestPasswordForgotUnknownEmailIsSilent(t *testing.T) {
	uc, _, _, mailer := newTestUsecase(t)

	if err := uc.PasswordForgot(context.Background(), PasswordForgotInput{Email: "ghost@example.com"}); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no email must be sent for unknown addresses")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	uc, userDir, clk, mailer := newTestUsecase(t)
	ctx := context.Background()

	_ = userDir.CreateUser(ctx, entity.User{Email: "jo@example.com", Role: entity.RoleMember, CreatedAt: clk.Now()}, "old-hash")

	if err := uc.PasswordForgot(ctx, PasswordForgotInput{Email: "jo@example.com"}); err != nil {
		t.Fatalf("forgot failed: %v", err)
	}

	if err := uc.PasswordReset(ctx, PasswordResetInput{
		Email:       "jo@example.com",
		Code:        mailer.lastCode(t),
		NewPassword: "NewSecret123!",
	}); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if _, err := uc.Login(ctx, LoginInput{Email: "jo@example.com", Password: "NewSecret123!"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestProfile(t *testing.T) {
	uc, userDir, clk, _ := newTestUsecase(t)
	ctx := context.Background()

	_, err := uc.Profile(ctx)
	if status := statusOf(t, err); status != 401 {
		t.Fatalf("expected 401 without auth, got %d", status)
	}

	_ = userDir.CreateUser(ctx, entity.User{Email: "jo@example.com", FullName: "Jo Mwangi", Role: entity.RoleMember, CreatedAt: clk.Now()}, "x")

	out, err := uc.Profile(authCtx("jo@example.com", entity.RoleMember))
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if out.FullName != "Jo Mwangi" {
		t.Fatalf("unexpected full name %q", out.FullName)
	}

	clk.Advance(time.Hour)
	if err := uc.ProfileUpdate(authCtx("jo@example.com", entity.RoleMember), ProfileUpdateInput{FullName: "Jo M."}); err != nil {
		t.Fatalf("profile update failed: %v", err)
	}

	user, _ := userDir.GetUserByEmail(ctx, "jo@example.com")
	if user.FullName != "Jo M." {
		t.Fatalf("expected updated full name, got %q", user.FullName)
	}
	// The write stamp comes from the injected clock, not the wall clock.
	if !user.UpdatedAt.Equal(clk.Now()) {
		t.Fatalf("expected updated_at %v, got %v", clk.Now(), user.UpdatedAt)
	}
}

func TestUserListRequiresAdmin(t *testing.T) {
	uc, userDir, clk, _ := newTestUsecase(t)
	ctx := context.Background()

	_ = userDir.CreateUser(ctx, entity.User{Email: "a@example.com", Role: entity.RoleMember, CreatedAt: clk.Now()}, "x")
	_ = userDir.CreateUser(ctx, entity.User{Email: "admin@example.com", Role: entity.RoleAdmin, CreatedAt: clk.Now().Add(time.Minute)}, "x")

	_, err := uc.UserList(authCtx("a@example.com", entity.RoleMember))
	if status := statusOf(t, err); status != 403 {
		t.Fatalf("expected 403 for member, got %d", status)
	}

	out, err := uc.UserList(authCtx("admin@example.com", entity.RoleAdmin))
	if err != nil {
		t.Fatalf("user list failed: %v", err)
	}
	if out.Total != 2 {
		t.Fatalf("expected 2 users, got %d", out.Total)
	}
	if out.Users[0].Email != "admin@example.com" {
		t.Fatalf("expected newest account first, got %q", out.Users[0].Email)
	}
}
