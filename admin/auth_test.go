package admin

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"pressroom/models"
)

func TestRequireAuth_NotLoggedIn(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/api/admin/comments/pending", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_UnknownUser(t *testing.T) {
	env := setupTestEnv(t)
	session := env.login(t, &models.User{ID: 404})

	w := env.do(http.MethodGet, "/api/admin/comments/pending", nil, session)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_NotStaff(t *testing.T) {
	env := setupTestEnv(t)
	reader := createTestUser(t, env.db, "reader", false)
	session := env.login(t, reader)

	w := env.do(http.MethodPost, "/api/admin/tags", map[string]interface{}{"name": "Go"}, session)

	assert.Equal(t, http.StatusForbidden, w.Code)
	tags, err := env.service.Tags(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, tags)
}

func TestRequireAuth_Staff(t *testing.T) {
	env := setupTestEnv(t)
	_, session := env.staff(t)

	w := env.do(http.MethodGet, "/api/admin/comments/pending", nil, session)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestRequireAuth_ZeroUserID(t *testing.T) {
	env := setupTestEnv(t)
	session := env.login(t, &models.User{ID: 0})

	w := env.do(http.MethodGet, "/api/admin/comments/pending", nil, session)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
