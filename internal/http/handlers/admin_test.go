package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/pitchndeck/api/internal/auth"
	"github.com/pitchndeck/api/internal/config"
	"github.com/pitchndeck/api/internal/domain/user"
	"github.com/pitchndeck/api/internal/http/handlers"
	"github.com/pitchndeck/api/internal/http/middlewares"
	"github.com/pitchndeck/api/internal/repo/mongodb"
	"github.com/gin-gonic/gin"
)

type fakeAdminRepo struct {
	listFn      func(ctx context.Context, page, limit int) ([]user.User, int64, error)
	statsFn     func(ctx context.Context) (user.Stats, error)
	recentFn    func(ctx context.Context, since time.Time) (int64, error)
	setActiveFn func(ctx context.Context, id string, active bool) error
}

func (f *fakeAdminRepo) List(ctx context.Context, page, limit int) ([]user.User, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, page, limit)
	}
	return nil, 0, nil
}

func (f *fakeAdminRepo) Stats(ctx context.Context) (user.Stats, error) {
	if f.statsFn != nil {
		return f.statsFn(ctx)
	}
	return user.Stats{}, nil
}

func (f *fakeAdminRepo) CountSignupsSince(ctx context.Context, since time.Time) (int64, error) {
	if f.recentFn != nil {
		return f.recentFn(ctx, since)
	}
	return 0, nil
}

func (f *fakeAdminRepo) SetActive(ctx context.Context, id string, active bool) error {
	if f.setActiveFn != nil {
		return f.setActiveFn(ctx, id, active)
	}
	return nil
}

// roleStore backs the admin gate's live role re-check.
type roleStore struct {
	users map[string]user.User
}

func (s *roleStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	u, ok := s.users[email]

	if !ok {
		return user.User{}, mongodb.ErrUserNotFound
	}
	return u, nil
}

func newAdminRouter(repo *fakeAdminRepo, store *roleStore) (*gin.Engine, *auth.Manager) {
	cfg := config.Config{Env: "test", JWTSecret: testJWTSecret, SessionTTL: time.Hour}
	jwt := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)

	session := middlewares.NewSessionMiddleware(jwt)
	gate := middlewares.NewAdminGate(store)

	h := handlers.NewAdminHandler(repo, cfg, nil)

	r := gin.New()
	admin := r.Group("/admin", session.RequireSession(), gate.RequireAdmin())
	admin.GET("/users", h.ListUsers)
	admin.PATCH("/users", h.UpdateUserStatus)

	return r, jwt
}

func adminCookie(t *testing.T, jwt *auth.Manager, u user.User) *http.Cookie {
	t.Helper()

	token, _, err := jwt.IssueSessionToken(u.ID, u.Email, u.Name, u.Role)

	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	return &http.Cookie{Name: middlewares.SessionCookieName, Value: token}
}

func adminUser() user.User {
	return user.User{
		ID:       "65a1b2c3d4e5f60718293a4b",
		Email:    "admin@example.com",
		Name:     "Admin",
		Role:     user.RoleAdmin,
		IsActive: true,
	}
}

func clientUser() user.User {
	return user.User{
		ID:       "65a1b2c3d4e5f60718293a4c",
		Email:    "client@example.com",
		Name:     "Client",
		Role:     user.RoleClient,
		IsActive: true,
	}
}

func TestListUsersAuthorization(t *testing.T) {
	adm := adminUser()
	cli := clientUser()

	store := &roleStore{users: map[string]user.User{
		adm.Email: adm,
		cli.Email: cli,
	}}

	r, jwt := newAdminRouter(&fakeAdminRepo{}, store)

	tests := []struct {
		name           string
		cookie         func(t *testing.T) *http.Cookie
		wantStatusCode int
	}{
		{
			name:           "no_token",
			cookie:         func(t *testing.T) *http.Cookie { return nil },
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "expired_token",
			cookie: func(t *testing.T) *http.Cookie {
				expired := auth.NewManager(testJWTSecret, -time.Minute)
				return adminCookie(t, expired, adm)
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "client_role",
			cookie:         func(t *testing.T) *http.Cookie { return adminCookie(t, jwt, cli) },
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "admin_role",
			cookie:         func(t *testing.T) *http.Cookie { return adminCookie(t, jwt, adm) },
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodGet, "/admin/users", "", tt.cookie(t))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

// A demoted admin still holding an admin-role token must be rejected: the
// gate trusts the store, not the claim.
func TestGateReChecksLiveRole(t *testing.T) {
	adm := adminUser()

	store := &roleStore{users: map[string]user.User{adm.Email: adm}}

	r, jwt := newAdminRouter(&fakeAdminRepo{}, store)

	cookie := adminCookie(t, jwt, adm)

	w := doJSON(t, r, http.MethodGet, "/admin/users", "", cookie)

	if w.Code != http.StatusOK {
		t.Fatalf("before demotion: got status %d, body=%s", w.Code, w.Body.String())
	}

	demoted := adm
	demoted.Role = user.RoleClient
	store.users[adm.Email] = demoted

	w = doJSON(t, r, http.MethodGet, "/admin/users", "", cookie)

	if w.Code != http.StatusForbidden {
		t.Fatalf("after demotion: got status %d, want 403", w.Code)
	}
}

func TestListUsersPayload(t *testing.T) {
	adm := adminUser()
	store := &roleStore{users: map[string]user.User{adm.Email: adm}}

	now := time.Now().UTC()

	repo := &fakeAdminRepo{
		listFn: func(ctx context.Context, page, limit int) ([]user.User, int64, error) {
			if page != 2 || limit != 10 {
				t.Errorf("List called with page=%d limit=%d, want 2/10", page, limit)
			}
			return []user.User{
				{ID: "a", Email: "a@example.com", Name: "A", Role: user.RoleAdmin, IsActive: true, CreatedAt: now, PasswordHash: "sekret"},
				{ID: "b", Email: "b@example.com", Name: "B", Role: user.RoleClient, IsActive: false, CreatedAt: now, PasswordHash: "sekret"},
			}, 42, nil
		},
		statsFn: func(ctx context.Context) (user.Stats, error) {
			return user.Stats{TotalUsers: 42, ActiveUsers: 40, AdminUsers: 1, ClientUsers: 41}, nil
		},
		recentFn: func(ctx context.Context, since time.Time) (int64, error) {
			if time.Since(since) < 29*24*time.Hour || time.Since(since) > 31*24*time.Hour {
				t.Errorf("recent-signup cutoff %v not ~30 days back", since)
			}
			return 7, nil
		},
	}

	r, jwt := newAdminRouter(repo, store)

	w := doJSON(t, r, http.MethodGet, "/admin/users?page=2&limit=10", "", adminCookie(t, jwt, adm))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Users      []user.AdminView `json:"users"`
		Pagination struct {
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
			Pages int64 `json:"pages"`
		} `json:"pagination"`
		Statistics    user.Stats `json:"statistics"`
		RecentSignups int64      `json:"recentSignups"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}

	if len(resp.Users) != 2 {
		t.Fatalf("users len = %d, want 2", len(resp.Users))
	}

	if resp.Pagination.Total != 42 || resp.Pagination.Pages != 5 {
		t.Errorf("pagination = %+v, want total=42 pages=5", resp.Pagination)
	}

	if resp.Statistics.TotalUsers != 42 {
		t.Errorf("statistics.totalUsers = %d, want 42", resp.Statistics.TotalUsers)
	}

	if resp.RecentSignups != 7 {
		t.Errorf("recentSignups = %d, want 7", resp.RecentSignups)
	}

	if bytes := w.Body.String(); containsAny(bytes, "sekret", "passwordHash") {
		t.Errorf("listing leaks password material: %s", bytes)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && len(s) >= len(sub) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}

func TestListUsersBadQuery(t *testing.T) {
	adm := adminUser()
	store := &roleStore{users: map[string]user.User{adm.Email: adm}}

	r, jwt := newAdminRouter(&fakeAdminRepo{}, store)

	for _, q := range []string{"?page=0", "?limit=0", "?limit=500", "?page=abc", "?limit=ten", "?page=1.5"} {
		w := doJSON(t, r, http.MethodGet, "/admin/users"+q, "", adminCookie(t, jwt, adm))

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want 400", q, w.Code)
		}
	}
}

func TestUpdateUserStatus(t *testing.T) {
	adm := adminUser()
	store := &roleStore{users: map[string]user.User{adm.Email: adm}}

	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeAdminRepo)
		wantStatusCode int
		wantMessage    string
	}{
		{
			name: "deactivate",
			body: `{"userId": "65a1b2c3d4e5f60718293a4c", "isActive": false}`,
			repoSetUp: func(f *fakeAdminRepo) {
				f.setActiveFn = func(ctx context.Context, id string, active bool) error {
					if id != "65a1b2c3d4e5f60718293a4c" || active {
						t.Errorf("SetActive(%q, %v), want (65a1b2c3d4e5f60718293a4c, false)", id, active)
					}
					return nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantMessage:    "User deactivated successfully",
		},
		{
			name: "activate",
			body: `{"userId": "65a1b2c3d4e5f60718293a4c", "isActive": true}`,
			repoSetUp: func(f *fakeAdminRepo) {
				f.setActiveFn = func(ctx context.Context, id string, active bool) error {
					return nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantMessage:    "User activated successfully",
		},
		{
			name: "target_missing",
			body: `{"userId": "ffffffffffffffffffffffff", "isActive": false}`,
			repoSetUp: func(f *fakeAdminRepo) {
				f.setActiveFn = func(ctx context.Context, id string, active bool) error {
					return mongodb.ErrUserNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "missing_user_id",
			body:           `{"isActive": false}`,
			repoSetUp:      func(f *fakeAdminRepo) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing_is_active",
			body:           `{"userId": "65a1b2c3d4e5f60718293a4c"}`,
			repoSetUp:      func(f *fakeAdminRepo) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "store_error",
			body: `{"userId": "65a1b2c3d4e5f60718293a4c", "isActive": false}`,
			repoSetUp: func(f *fakeAdminRepo) {
				f.setActiveFn = func(ctx context.Context, id string, active bool) error {
					return errors.New("store down")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeAdminRepo{}
			tt.repoSetUp(repo)

			r, jwt := newAdminRouter(repo, store)

			w := doJSON(t, r, http.MethodPatch, "/admin/users", tt.body, adminCookie(t, jwt, adm))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantMessage != "" && !containsAny(w.Body.String(), tt.wantMessage) {
				t.Errorf("body %s missing message %q", w.Body.String(), tt.wantMessage)
			}
		})
	}
}
