package core

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*gin.Engine, *TokenCodec) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec := NewTokenCodec([]byte("test-secret"))
	users := NewMemUserRepository()
	categories := NewMemCategoryRepository()
	items := NewMemItemRepository()
	authService := NewRepositoryAuthService(users, codec)

	return NewRouter(authService, codec, categories, items), codec
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func registerUser(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeBody(t, w)["token"].(string)
}

func guestToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/guest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	return decodeBody(t, w)["token"].(string)
}

func createCategory(t *testing.T, r *gin.Engine, token, name string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/categories", token, gin.H{"name": name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeBody(t, w)["id"].(string)
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestAPI(t)
	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestRegisterEndpoint(t *testing.T) {
	r, codec := newTestAPI(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{"username": "alice", "password": "password"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, RoleUser, user["role"])

	claims, err := codec.Decode(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, RoleUser, claims["role"])
	assert.NotEmpty(t, claims["userId"])
}

func TestRegisterEndpointRejections(t *testing.T) {
	r, _ := newTestAPI(t)
	registerUser(t, r, "alice", "password")

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{"username": "ALICE", "password": "password"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Username already exists"}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{"username": "ab", "password": "password"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Username must be at least 3 characters long"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, rec.Body.String())
}

func TestLoginEndpoint(t *testing.T) {
	r, _ := newTestAPI(t)
	registerUser(t, r, "alice", "password")

	w := doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{"username": "Alice", "password": "password"})
	require.Equal(t, http.StatusOK, w.Code)
	user := decodeBody(t, w)["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid username or password"}`, w.Body.String())
}

func TestGuestEndpoint(t *testing.T) {
	r, codec := newTestAPI(t)

	w := doJSON(t, r, http.MethodPost, "/auth/guest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	user := body["user"].(map[string]any)
	assert.Equal(t, GuestUsername, user["username"])
	assert.Equal(t, RoleGuest, user["role"])

	claims, err := codec.Decode(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, RoleGuest, claims["role"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestAPI(t)

	w := doJSON(t, r, http.MethodGet, "/categories", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Authorization header missing"}`, w.Body.String())
}

func TestCategoryLifecycle(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "alice", "password")

	w := doJSON(t, r, http.MethodPost, "/categories", token, gin.H{"name": "  Groceries  "})
	require.Equal(t, http.StatusOK, w.Code)
	created := decodeBody(t, w)
	assert.Equal(t, "Groceries", created["name"])
	assert.Equal(t, false, created["hidden"])
	id := created["id"].(string)

	w = doJSON(t, r, http.MethodPost, "/categories", token, gin.H{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Category name is required"}`, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/categories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	w = doJSON(t, r, http.MethodPatch, "/categories/"+id, token, gin.H{"hidden": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["hidden"])

	// Hidden categories leave the default view and show up under the others.
	for view, want := range map[string]int{"": 0, "?view=hidden": 1, "?view=all": 1} {
		w = doJSON(t, r, http.MethodGet, "/categories"+view, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		assert.Len(t, list, want, "view=%q", view)
	}

	w = doJSON(t, r, http.MethodDelete, "/categories/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = doJSON(t, r, http.MethodDelete, "/categories/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Category not found"}`, w.Body.String())
}

func TestOwnershipScoping(t *testing.T) {
	r, _ := newTestAPI(t)
	alice := registerUser(t, r, "alice", "password")
	bob := registerUser(t, r, "bob", "password")
	guest := guestToken(t, r)

	aliceCat := createCategory(t, r, alice, "Alice Stuff")
	guestCat := createCategory(t, r, guest, "Shared Stuff")

	// Each principal sees only its own pool.
	for name, tc := range map[string]struct {
		token string
		want  int
	}{"alice": {alice, 1}, "bob": {bob, 0}, "guest": {guest, 1}} {
		w := doJSON(t, r, http.MethodGet, "/categories", tc.token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var list []Category
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		assert.Len(t, list, tc.want, name)
	}

	// A second guest session lands in the same shared pool.
	otherGuest := guestToken(t, r)
	w := doJSON(t, r, http.MethodGet, "/categories", otherGuest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, guestCat, list[0].ID)

	// Foreign records are indistinguishable from missing ones.
	w = doJSON(t, r, http.MethodPatch, "/categories/"+aliceCat, bob, gin.H{"name": "stolen"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/categories/"+guestCat, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestItemLifecycle(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "alice", "password")
	catID := createCategory(t, r, token, "Groceries")

	w := doJSON(t, r, http.MethodPost, "/items/"+catID, token, gin.H{"name": "  Milk  "})
	require.Equal(t, http.StatusOK, w.Code)
	created := decodeBody(t, w)
	assert.Equal(t, "Milk", created["name"])
	assert.Equal(t, true, created["need"])
	assert.Equal(t, catID, created["categoryId"])
	itemID := created["id"].(string)

	w = doJSON(t, r, http.MethodPost, "/items/"+catID, token, gin.H{"name": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Item name is required"}`, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/items/"+catID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, catID, body["category"].(map[string]any)["id"])
	require.Len(t, body["items"].([]any), 1)

	w = doJSON(t, r, http.MethodPatch, "/items/"+itemID, token, gin.H{"need": false, "notes": "2L bottle"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeBody(t, w)
	assert.Equal(t, false, updated["need"])
	assert.Equal(t, "2L bottle", updated["notes"])
	assert.Equal(t, "Milk", updated["name"])

	w = doJSON(t, r, http.MethodDelete, "/items/"+itemID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = doJSON(t, r, http.MethodPatch, "/items/"+itemID, token, gin.H{"need": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Item not found"}`, w.Body.String())
}

func TestItemOwnershipViaCategory(t *testing.T) {
	r, _ := newTestAPI(t)
	alice := registerUser(t, r, "alice", "password")
	bob := registerUser(t, r, "bob", "password")

	catID := createCategory(t, r, alice, "Alice Stuff")
	w := doJSON(t, r, http.MethodPost, "/items/"+catID, alice, gin.H{"name": "Milk"})
	require.Equal(t, http.StatusOK, w.Code)
	itemID := decodeBody(t, w)["id"].(string)

	// Bob cannot reach Alice's category or its items.
	w = doJSON(t, r, http.MethodGet, "/items/"+catID, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Category not found"}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/items/"+catID, bob, gin.H{"name": "Beer"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/items/"+itemID, bob, gin.H{"need": false})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Item not found"}`, w.Body.String())

	w = doJSON(t, r, http.MethodDelete, "/items/"+itemID, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCategoryRemovesItems(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "alice", "password")
	catID := createCategory(t, r, token, "Groceries")

	w := doJSON(t, r, http.MethodPost, "/items/"+catID, token, gin.H{"name": "Milk"})
	require.Equal(t, http.StatusOK, w.Code)
	itemID := decodeBody(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodDelete, "/categories/"+catID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/items/"+catID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/items/"+itemID, token, gin.H{"need": false})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
