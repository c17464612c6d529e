// errors/acl_errors.go
package errors

import "errors"

var (
	ErrRemoteSourceFailure           = errors.New("remote ACL source fetch failed")
	ErrConsistencyStoreUnreachable   = errors.New("consistency store unreachable")
	ErrInvalidRequest                = errors.New("invalid request")
	ErrUnauthorized                  = errors.New("unauthorized")
	ErrInternalServer                = errors.New("internal server error")
	ErrRefreshAlreadyRunning         = errors.New("refresh already running on another replica")
	ErrInvalidObjectIdentityType     = errors.New("invalid object identity type")
	ErrConsistencyHashPublishFailure = errors.New("failed to publish consistency hash")
)
