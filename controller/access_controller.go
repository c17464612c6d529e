// controller/access_controller.go
package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	warden_errors "github.com/dev-mohitbeniwal/warden/errors"
	"github.com/dev-mohitbeniwal/warden/model"
	"github.com/dev-mohitbeniwal/warden/service"
	"github.com/dev-mohitbeniwal/warden/util"
)

type AccessController struct {
	accessService service.IAccessService
}

func NewAccessController(accessService service.IAccessService) *AccessController {
	return &AccessController{
		accessService: accessService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	acls := r.Group("/acls")
	{
		acls.GET("", ac.GetACLs)
	}
	cache := r.Group("/cache")
	{
		cache.GET("/types", ac.GetTrackedTypes)
		cache.POST("/refresh", ac.RefreshCache)
		cache.POST("/expire", ac.ExpireCache)
	}
}

// GetACLs endpoint; requested types come as a comma-separated "types" query
// parameter, e.g. /acls?types=provider,system
func (ac *AccessController) GetACLs(c *gin.Context) {
	raw := c.Query("types")
	if raw == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Missing types query parameter", warden_errors.ErrInvalidRequest)
		return
	}

	var requested []model.ObjectIdentityType
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			requested = append(requested, model.ObjectIdentityType(name))
		}
	}

	acls, err := ac.accessService.GetACLs(c, requested)
	if err != nil {
		switch err {
		case warden_errors.ErrInvalidObjectIdentityType:
			util.RespondWithError(c, http.StatusBadRequest, "Invalid object identity types", err)
		case warden_errors.ErrConsistencyStoreUnreachable:
			util.RespondWithError(c, http.StatusServiceUnavailable, "Consistency store unreachable", err)
		case warden_errors.ErrRemoteSourceFailure:
			util.RespondWithError(c, http.StatusBadGateway, "ACL source fetch failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch ACLs", warden_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"acls":  acls,
		"count": len(acls),
	})
}

// GetTrackedTypes endpoint
func (ac *AccessController) GetTrackedTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tracked_types": ac.accessService.TrackedTypes()})
}

// RefreshCache endpoint triggers an immediate unconditional repopulation
func (ac *AccessController) RefreshCache(c *gin.Context) {
	if err := ac.accessService.Refresh(c); err != nil {
		switch err {
		case warden_errors.ErrRefreshAlreadyRunning:
			util.RespondWithError(c, http.StatusConflict, "Refresh already running", err)
		case warden_errors.ErrRemoteSourceFailure:
			util.RespondWithError(c, http.StatusBadGateway, "ACL source fetch failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to refresh ACL cache", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// ExpireCache endpoint forces a consistency check on the next read
func (ac *AccessController) ExpireCache(c *gin.Context) {
	if err := ac.accessService.ForceExpire(c, "admin request"); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to expire ACL cache", err)
		return
	}

	c.Status(http.StatusNoContent)
}
