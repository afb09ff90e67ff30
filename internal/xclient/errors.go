package xclient

import "fmt"

// AuthError means the session could not be resolved to an account: the remote
// rejected it, or answered without the identity fields. The remote does not
// reliably distinguish the two so neither do we.
type AuthError struct {
	Status int
	Reason string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("invalid credentials or session expired (status %d)", e.Status)
	}
	return "invalid credentials or session expired: " + e.Reason
}

// FetchError is a failed listing call. The caller may retry the same page.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return "failed to fetch tweets: " + e.Err.Error()
	}
	return fmt.Sprintf("failed to fetch tweets (status %d)", e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DeleteItemError is the failure of a single delete call.
type DeleteItemError struct {
	ID     string
	Status int
	Err    error
}

func (e *DeleteItemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delete %s: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("delete %s: status %d", e.ID, e.Status)
}

func (e *DeleteItemError) Unwrap() error { return e.Err }
