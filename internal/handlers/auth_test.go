package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farmmarket/apiserver/internal/auth"
	"github.com/farmmarket/apiserver/internal/services"
	"github.com/farmmarket/apiserver/internal/store"
	"github.com/farmmarket/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// -------- test fakes --------

type fakeUserRepo struct {
	byID    map[int]types.User
	byEmail map[string]types.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[int]types.User),
		byEmail: make(map[string]types.User),
		nextID:  1,
	}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, exists := f.byEmail[user.Email]; exists {
		return types.User{}, store.ErrDuplicateEmail
	}
	user.ID = f.nextID
	f.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := f.byID[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
	return user, nil
}

func newAuthRouter(repo *fakeUserRepo) http.Handler {
	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, services.NewUserService(repo), testSecret)
	})
	return router
}

func doJSON(t *testing.T, handler http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

// -------- tests --------

func TestRegister_IssuesTokenBoundToUser(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	resp := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "pw123",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var payload TokenResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Token)

	userID, err := auth.VerifyToken(payload.Token, []byte(testSecret))
	require.NoError(t, err)
	require.Equal(t, 1, userID)

	// Unspecified role defaults to buyer, and the password is only stored
	// hashed.
	user := repo.byID[1]
	require.Equal(t, types.RoleBuyer, user.Role)
	require.NotEqual(t, "pw123", user.PasswordHash)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	first := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "pw123",
	})
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Other", "email": "asha@example.com", "password": "different",
	})
	require.Equal(t, http.StatusConflict, second.Code)

	// The first account is untouched.
	require.Equal(t, "Asha", repo.byEmail["asha@example.com"].Name)
}

func TestRegister_InvalidRole(t *testing.T) {
	router := newAuthRouter(newFakeUserRepo())

	resp := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "pw123", "role": "admin",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLogin_FailureShapesAreIdentical(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	resp := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "pw123",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	wrongPassword := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "wrong",
	})
	unknownEmail := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "anything",
	})

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, unknownEmail.Code, wrongPassword.Code)
	require.JSONEq(t, unknownEmail.Body.String(), wrongPassword.Body.String())
}

func TestMe_ReturnsUserWithoutPassword(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	resp := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "pw123", "location": "Pune",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	var payload TokenResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))

	me := doJSON(t, router, http.MethodGet, "/auth", payload.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &body))
	require.Equal(t, "asha@example.com", body["email"])
	require.Equal(t, "Pune", body["location"])
	require.NotContains(t, body, "password")
	require.NotContains(t, body, "password_hash")
}

func TestRequireAuth_Rejections(t *testing.T) {
	router := newAuthRouter(newFakeUserRepo())

	missing := doJSON(t, router, http.MethodGet, "/auth", "", nil)
	require.Equal(t, http.StatusUnauthorized, missing.Code)

	garbage := doJSON(t, router, http.MethodGet, "/auth", "not.a.jwt", nil)
	require.Equal(t, http.StatusUnauthorized, garbage.Code)

	expired, err := auth.IssueToken(1, []byte(testSecret), -1*time.Minute)
	require.NoError(t, err)
	stale := doJSON(t, router, http.MethodGet, "/auth", expired, nil)
	require.Equal(t, http.StatusUnauthorized, stale.Code)
	require.Contains(t, stale.Body.String(), "token expired")
}
