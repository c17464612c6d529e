// controller/access_controller_test.go
package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/dev-mohitbeniwal/warden/controller"
	warden_errors "github.com/dev-mohitbeniwal/warden/errors"
	logger "github.com/dev-mohitbeniwal/warden/logging"
	"github.com/dev-mohitbeniwal/warden/model"
	"github.com/dev-mohitbeniwal/warden/test/mock"
)

func TestMain(m *testing.M) {
	logDir, err := os.MkdirTemp("", "warden-test-logs")
	if err != nil {
		panic(err)
	}
	logger.InitLogger(logDir)
	gin.SetMode(gin.TestMode)
	code := m.Run()
	os.RemoveAll(logDir)
	os.Exit(code)
}

func setupRouter(svc *mock.AccessService) *gin.Engine {
	router := gin.New()
	api := router.Group("/")
	controller.NewAccessController(svc).RegisterRoutes(api)
	return router
}

func TestGetACLs(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var requested []model.ObjectIdentityType
		svc := &mock.AccessService{
			GetACLsFunc: func(ctx context.Context, types []model.ObjectIdentityType) ([]model.ACL, error) {
				requested = types
				return []model.ACL{{ID: "acl-1", Scopes: map[string]string{"provider_id": "p-1"}}}, nil
			},
		}
		router := setupRouter(svc)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/acls?types=provider,%20system", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []model.ObjectIdentityType{"provider", "system"}, requested)

		var body struct {
			ACLs  []model.ACL `json:"acls"`
			Count int         `json:"count"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, "acl-1", body.ACLs[0].ID)
	})

	t.Run("MissingTypesParam", func(t *testing.T) {
		router := setupRouter(&mock.AccessService{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/acls", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidTypes", func(t *testing.T) {
		svc := &mock.AccessService{
			GetACLsFunc: func(ctx context.Context, types []model.ObjectIdentityType) ([]model.ACL, error) {
				return nil, warden_errors.ErrInvalidObjectIdentityType
			},
		}
		router := setupRouter(svc)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/acls?types=provider", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ConsistencyStoreUnreachable", func(t *testing.T) {
		svc := &mock.AccessService{
			GetACLsFunc: func(ctx context.Context, types []model.ObjectIdentityType) ([]model.ACL, error) {
				return nil, warden_errors.ErrConsistencyStoreUnreachable
			},
		}
		router := setupRouter(svc)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/acls?types=provider", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("SourceFailure", func(t *testing.T) {
		svc := &mock.AccessService{
			GetACLsFunc: func(ctx context.Context, types []model.ObjectIdentityType) ([]model.ACL, error) {
				return nil, warden_errors.ErrRemoteSourceFailure
			},
		}
		router := setupRouter(svc)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/acls?types=provider", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestRefreshCache(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		refreshed := false
		svc := &mock.AccessService{
			RefreshFunc: func(ctx context.Context) error {
				refreshed = true
				return nil
			},
		}
		router := setupRouter(svc)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/cache/refresh", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.True(t, refreshed)
	})

	t.Run("AlreadyRunning", func(t *testing.T) {
		svc := &mock.AccessService{
			RefreshFunc: func(ctx context.Context) error {
				return warden_errors.ErrRefreshAlreadyRunning
			},
		}
		router := setupRouter(svc)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/cache/refresh", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("SourceFailure", func(t *testing.T) {
		svc := &mock.AccessService{
			RefreshFunc: func(ctx context.Context) error {
				return warden_errors.ErrRemoteSourceFailure
			},
		}
		router := setupRouter(svc)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/cache/refresh", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestExpireCache(t *testing.T) {
	expired := false
	svc := &mock.AccessService{
		ForceExpireFunc: func(ctx context.Context, reason string) error {
			expired = true
			return nil
		},
	}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/cache/expire", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, expired)
}

func TestGetTrackedTypes(t *testing.T) {
	svc := &mock.AccessService{
		TrackedTypesFunc: func() []model.ObjectIdentityType {
			return []model.ObjectIdentityType{"provider", "system"}
		},
	}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/cache/types", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		TrackedTypes []string `json:"tracked_types"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"provider", "system"}, body.TrackedTypes)
}
