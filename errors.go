package swcache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotActive is returned by Handle outside the Active state.
	ErrNotActive = errors.New("swcache: worker is not active")
	// ErrNoSnapshot is returned by the network-first strategy when the network
	// failed and nothing has been snapshotted yet.
	ErrNoSnapshot = errors.New("swcache: network unavailable and no snapshot cached")
	// ErrRejected is returned when the provider refused a write.
	ErrRejected = errors.New("swcache: provider rejected write")
)

// StateError reports a lifecycle call made from the wrong state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("swcache: %s not allowed in state %s", e.Op, e.State)
}

// Is lets errors.Is(err, ErrNotActive) match a rejected Handle.
func (e *StateError) Is(target error) bool {
	return target == ErrNotActive && e.Op == "handle"
}

// InstallError is returned by Install when pre-caching fails.
type InstallError struct {
	URL    string
	Status int // non-zero when the origin answered with a non-2xx status
	Err    error
}

func (e *InstallError) Error() string {
	switch {
	case e.URL == "":
		return fmt.Sprintf("install: %v", e.Err)
	case e.Status != 0:
		return fmt.Sprintf("install: precache %q: status %d", e.URL, e.Status)
	default:
		return fmt.Sprintf("install: precache %q: %v", e.URL, e.Err)
	}
}

func (e *InstallError) Unwrap() error { return e.Err }

// DeleteError is returned when a namespace could not be fully removed.
type DeleteError struct {
	Namespace string
	BumpErr   error
	DelErr    error
}

func (e *DeleteError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("delete namespace %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Namespace, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("delete namespace %q: gen bump failed: %v", e.Namespace, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("delete namespace %q: delete failed: %v", e.Namespace, e.DelErr)
	default:
		return fmt.Sprintf("delete namespace %q: unknown error", e.Namespace)
	}
}

func (e *DeleteError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
