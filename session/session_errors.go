package session

import "errors"

var (
	LoginFailedErr       = errors.New("login failed")
	NotAuthenticatedErr  = errors.New("not authenticated")
	TenantNotResolvedErr = errors.New("tenant not resolved")
	SessionClosedErr     = errors.New("session closed")
	ProfileFetchErr      = errors.New("profile fetch failed")
)
