package social

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"golang.org/x/oauth2"

	auth "github.com/goliatone/go-classroom-auth"
)

// ProviderError captures normalized provider response details.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := "provider"
	if e.Provider != "" && e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Provider, e.Operation)
	} else if e.Provider != "" {
		scope = e.Provider
	} else if e.Operation != "" {
		scope = e.Operation
	}

	if e.Description != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Provider != "" {
		meta["provider"] = e.Provider
	}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Code != "" {
		meta["code"] = e.Code
	}
	if e.Description != "" {
		meta["description"] = e.Description
	}

	return meta
}

func newProviderError(provider, operation string, err error) *ProviderError {
	perr := &ProviderError{Provider: provider, Operation: operation, Err: err}

	var inner *ProviderError
	if errors.As(err, &inner) {
		perr.Status = inner.Status
		perr.Code = inner.Code
		perr.Description = inner.Description
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response != nil {
			perr.Status = rerr.Response.StatusCode
		}
		perr.Code = rerr.ErrorCode
		perr.Description = rerr.ErrorDescription
	}

	return perr
}

// classifyProviderError maps exchange failures onto the auth taxonomy:
// transport failures are network failures, everything else is a denial.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}

	meta := map[string]any{}
	var perr *ProviderError
	if errors.As(err, &perr) {
		meta = perr.Metadata()
	}

	var (
		nerr net.Error
		uerr *url.Error
	)
	if perr == nil || perr.Status == 0 {
		if errors.As(err, &nerr) || errors.As(err, &uerr) ||
			errors.Is(err, context.DeadlineExceeded) {
			return auth.ErrNetworkFailure.WithMetadata(meta).Wrap(err)
		}
	}

	return auth.ErrProviderDenied.WithMetadata(meta).Wrap(err)
}
