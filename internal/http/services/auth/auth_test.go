package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/jwt"
	"github.com/kovacsdavid/obvia/internal/security/password"
)

var testParams = password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}

const (
	testEmail    = "testuser@example.com"
	testPassword = "correctpassword"
)

type harness struct {
	svc         Services
	codec       *jwt.Codec
	users       *fakeUsers
	userTenants *fakeUserTenants
	tokens      *fakeTokens
	events      *fakeEvents
	user        *repository.User
	client      ClientInfo
}

func newHarness(t *testing.T, maxFailures int) *harness {
	t.Helper()
	hash, err := password.Hash(testParams, testPassword)
	require.NoError(t, err)

	user := &repository.User{
		ID:           "6f1c1a52-9d1e-4d35-9b39-0a6f0a0c5a11",
		Email:        testEmail,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Status:       repository.UserStatusActive,
	}

	codec, err := jwt.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "obvia", "obvia", time.Minute, time.Hour)
	require.NoError(t, err)

	h := &harness{
		codec:       codec,
		users:       newFakeUsers(user),
		userTenants: newFakeUserTenants(),
		tokens:      newFakeTokens(),
		events:      newFakeEvents(time.Now),
		user:        user,
		client:      ClientInfo{IP: "203.0.113.7", UserAgent: "test"},
	}
	h.svc = NewServices(Deps{
		Users:          h.users,
		UserTenants:    h.userTenants,
		Tokens:         h.tokens,
		Events:         h.events,
		Codec:          codec,
		LoginRate:      LoginRate{MaxFailures: maxFailures, Window: time.Hour},
		PasswordParams: &testParams,
	})
	return h
}

func (h *harness) login(t *testing.T) *LoginResult {
	t.Helper()
	res, err := h.svc.Login.Login(context.Background(), LoginInput{Email: testEmail, Password: testPassword, Client: h.client})
	require.NoError(t, err)
	return res
}

// ─── Login ───

func TestLogin_Success(t *testing.T) {
	h := newHarness(t, 10)
	h.userTenants.add(h.user.ID, "tenant-old")
	h.userTenants.add(h.user.ID, "tenant-recent")

	res := h.login(t)

	claims, err := h.codec.ParseAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, h.user.ID, claims.Subject)
	require.NotNil(t, claims.ActiveTenant)
	assert.Equal(t, "tenant-recent", *claims.ActiveTenant)
	assert.Equal(t, []string{"obvia-api"}, []string(claims.Audience))

	refresh, err := h.codec.ParseRefresh(res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refresh.FamilyID)
	assert.Equal(t, []string{"obvia-auth"}, []string(refresh.Audience))

	rec, err := h.tokens.GetByJTI(context.Background(), refresh.ID)
	require.NoError(t, err)
	assert.True(t, rec.Usable())
	assert.Equal(t, refresh.FamilyID, rec.FamilyID)

	assert.Equal(t, []string{h.user.ID}, h.users.touched)
	assert.Equal(t, repository.EventSuccess, h.events.last().Status)
}

func TestLogin_NoTenant(t *testing.T) {
	h := newHarness(t, 10)
	res := h.login(t)
	claims, err := h.codec.ParseAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, claims.ActiveTenant)
}

func TestLogin_FreshFamilyPerLogin(t *testing.T) {
	h := newHarness(t, 10)
	a := h.login(t)
	b := h.login(t)
	assert.NotEqual(t, a.Tokens.RefreshClaims.FamilyID, b.Tokens.RefreshClaims.FamilyID)
}

func TestLogin_ErrorParity(t *testing.T) {
	h := newHarness(t, 10)
	ctx := context.Background()

	_, errUnknown := h.svc.Login.Login(ctx, LoginInput{Email: "nobody@example.com", Password: testPassword, Client: h.client})
	ev := h.events.last()
	assert.Equal(t, repository.EventFailure, ev.Status)
	assert.Nil(t, ev.UserID)
	require.NotNil(t, ev.Identifier)
	assert.Equal(t, "nobody@example.com", *ev.Identifier)

	_, errWrong := h.svc.Login.Login(ctx, LoginInput{Email: testEmail, Password: "wrongpassword", Client: h.client})

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_UnknownEmailNeverMatchesDummyHash(t *testing.T) {
	h := newHarness(t, 10)
	dummy, err := password.Hash(testParams, testPassword)
	require.NoError(t, err)

	svc := NewLoginService(LoginDeps{
		Users:     h.users,
		Events:    h.events,
		Issuer:    issuer{codec: h.codec, tokens: h.tokens, userTenants: h.userTenants},
		Recorder:  eventRecorder{repo: h.events},
		LoginRate: LoginRate{MaxFailures: 10, Window: time.Hour},
		Now:       time.Now,
		DummyHash: dummy,
	})

	res, err := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: testPassword, Client: h.client})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, repository.EventFailure, h.events.last().Status)
}

func TestLogin_Inactive(t *testing.T) {
	h := newHarness(t, 10)
	h.users.setStatus(testEmail, repository.UserStatusUncheckedEmail)

	_, err := h.svc.Login.Login(context.Background(), LoginInput{Email: testEmail, Password: testPassword, Client: h.client})
	assert.ErrorIs(t, err, ErrAccountInactive)
	assert.Equal(t, repository.EventFailure, h.events.last().Status)
}

func TestLogin_RateLimit(t *testing.T) {
	const n = 3
	h := newHarness(t, n)
	ctx := context.Background()

	for i := 0; i < n+1; i++ {
		_, err := h.svc.Login.Login(ctx, LoginInput{Email: testEmail, Password: "nope", Client: h.client})
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}

	_, err := h.svc.Login.Login(ctx, LoginInput{Email: testEmail, Password: testPassword, Client: h.client})
	require.ErrorIs(t, err, ErrTooManyAttempts)
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, time.Hour, rl.RetryAfter)
	assert.Equal(t, 1, h.events.countStatus(repository.EventLogin, repository.EventBlocked))

	// otra IP no se ve afectada
	_, err = h.svc.Login.Login(ctx, LoginInput{Email: testEmail, Password: testPassword, Client: ClientInfo{IP: "198.51.100.1"}})
	assert.NoError(t, err)
}

func TestLogin_RateCheckFailsClosed(t *testing.T) {
	h := newHarness(t, 10)
	h.events.countErr = errBoom

	_, err := h.svc.Login.Login(context.Background(), LoginInput{Email: testEmail, Password: testPassword, Client: h.client})
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Empty(t, h.users.touched)
}

// ─── Refresh ───

func TestRefresh_RotatesWithinFamily(t *testing.T) {
	h := newHarness(t, 10)
	ctx := context.Background()
	first := h.login(t)

	next, err := h.svc.Refresh.Refresh(ctx, first.Tokens.RefreshToken, h.client)
	require.NoError(t, err)

	assert.Equal(t, first.Tokens.RefreshClaims.FamilyID, next.RefreshClaims.FamilyID)
	assert.True(t, first.Tokens.RefreshClaims.ExpiresAt.Time.Equal(next.RefreshClaims.ExpiresAt.Time))
	assert.NotEqual(t, first.Tokens.RefreshClaims.ID, next.RefreshClaims.ID)

	old, err := h.tokens.GetByJTI(ctx, first.Tokens.RefreshClaims.ID)
	require.NoError(t, err)
	assert.True(t, old.Consumed)
	require.NotNil(t, old.ReplacedBy)
	assert.Equal(t, next.RefreshClaims.ID, *old.ReplacedBy)

	assert.Equal(t, repository.EventSuccess, h.events.last().Status)
	assert.Equal(t, repository.EventRefresh, h.events.last().Type)
}

func TestRefresh_ReuseRevokesFamily(t *testing.T) {
	h := newHarness(t, 10)
	ctx := context.Background()
	first := h.login(t)

	second, err := h.svc.Refresh.Refresh(ctx, first.Tokens.RefreshToken, h.client)
	require.NoError(t, err)

	_, err = h.svc.Refresh.Refresh(ctx, first.Tokens.RefreshToken, h.client)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, h.tokens.familyRevoked(first.Tokens.RefreshClaims.FamilyID))

	_, err = h.svc.Refresh.Refresh(ctx, second.RefreshToken, h.client)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 2, h.events.countStatus(repository.EventRefresh, repository.EventBlocked))
}

func TestRefresh_InactiveUserRevokesFamily(t *testing.T) {
	h := newHarness(t, 10)
	first := h.login(t)
	h.users.setStatus(testEmail, repository.UserStatusBanned)

	_, err := h.svc.Refresh.Refresh(context.Background(), first.Tokens.RefreshToken, h.client)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, h.tokens.familyRevoked(first.Tokens.RefreshClaims.FamilyID))
}

func TestRefresh_MissingFamily(t *testing.T) {
	h := newHarness(t, 10)
	claims := h.codec.NewRefreshClaims(h.user.ID, "", h.codec.RefreshExpiry(), nil)
	token, err := h.codec.Sign(claims)
	require.NoError(t, err)

	_, err = h.svc.Refresh.Refresh(context.Background(), token, h.client)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrRefreshToken)
}

func TestRefresh_UnknownJTI(t *testing.T) {
	h := newHarness(t, 10)
	claims := h.codec.NewRefreshClaims(h.user.ID, "fam-1", h.codec.RefreshExpiry(), nil)
	token, err := h.codec.Sign(claims)
	require.NoError(t, err)

	_, err = h.svc.Refresh.Refresh(context.Background(), token, h.client)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh_ExpiredIsAuditedWithSubject(t *testing.T) {
	h := newHarness(t, 10)
	past := time.Now().Add(-2 * time.Hour)
	old, err := jwt.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "obvia", "obvia", time.Minute, time.Hour)
	require.NoError(t, err)
	old.WithClock(func() time.Time { return past })
	claims := old.NewRefreshClaims(h.user.ID, "fam-expired", past.Add(time.Hour), nil)
	token, err := old.Sign(claims)
	require.NoError(t, err)

	_, err = h.svc.Refresh.Refresh(context.Background(), token, h.client)
	require.ErrorIs(t, err, ErrUnauthorized)

	ev := h.events.last()
	assert.Equal(t, repository.EventBlocked, ev.Status)
	require.NotNil(t, ev.UserID)
	assert.Equal(t, h.user.ID, *ev.UserID)
	assert.Contains(t, string(ev.Detail), "fam-expired")
}

func TestRefresh_GarbageHasNoUser(t *testing.T) {
	h := newHarness(t, 10)
	_, err := h.svc.Refresh.Refresh(context.Background(), "not-a-token", h.client)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, h.events.last().UserID)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	h := newHarness(t, 10)
	res := h.login(t)
	_, err := h.svc.Refresh.Refresh(context.Background(), res.Tokens.AccessToken, h.client)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// ─── Logout ───

func TestLogout(t *testing.T) {
	h := newHarness(t, 10)
	ctx := context.Background()
	res := h.login(t)

	require.NoError(t, h.svc.Logout.Logout(ctx, res.Tokens.RefreshToken))
	assert.True(t, h.tokens.familyRevoked(res.Tokens.RefreshClaims.FamilyID))

	_, err := h.svc.Refresh.Refresh(ctx, res.Tokens.RefreshToken, h.client)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogout_NoTokenIsNoop(t *testing.T) {
	h := newHarness(t, 10)
	assert.NoError(t, h.svc.Logout.Logout(context.Background(), ""))
}

func TestLogout_InvalidToken(t *testing.T) {
	h := newHarness(t, 10)
	assert.ErrorIs(t, h.svc.Logout.Logout(context.Background(), "garbage"), ErrUnauthorized)
}

// ─── Activation ───

func TestActivate(t *testing.T) {
	h := newHarness(t, 10)
	h.userTenants.add(h.user.ID, "tenant-a")
	h.userTenants.add(h.user.ID, "tenant-b")
	res := h.login(t)
	current := res.Tokens.AccessClaims
	require.Equal(t, "tenant-b", current.TenantID())

	out, err := h.svc.Activation.Activate(context.Background(), current, "tenant-a")
	require.NoError(t, err)

	parsed, err := h.codec.ParseAccess(out.Token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", parsed.TenantID())
	assert.Equal(t, current.Subject, parsed.Subject)
	assert.Equal(t, current.Issuer, parsed.Issuer)
	assert.True(t, current.ExpiresAt.Time.Equal(parsed.ExpiresAt.Time))
	assert.NotEqual(t, current.ID, parsed.ID)

	// la activación persiste para el próximo login
	active, err := h.userTenants.GetActiveTenant(context.Background(), h.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", *active)
}

func TestActivate_NotMember(t *testing.T) {
	h := newHarness(t, 10)
	h.userTenants.add("someone-else", "tenant-x")
	res := h.login(t)

	for _, tenant := range []string{"tenant-x", "does-not-exist"} {
		_, err := h.svc.Activation.Activate(context.Background(), res.Tokens.AccessClaims, tenant)
		assert.ErrorIs(t, err, ErrUnauthorized, tenant)
	}
}
