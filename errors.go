package clusterkv

import (
	"errors"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
)

// Sentinel errors surfaced directly to callers. They are never retried by
// the executor's redirect/retry state machine.
var (
	ErrNoClientAvailable     = errors.New("clusterkv: couldn't get client")
	ErrClusterQuitting       = errors.New("clusterkv: cluster is quitting")
	ErrReadyTimeoutReached   = errors.New("clusterkv: ready timeout reached")
	ErrMaxQueueLengthReached = errors.New("clusterkv: max slot queue length reached")
	ErrTooManyRedirects      = errors.New("clusterkv: too many redirects")
)

// NoKeyError reports that a command was issued without a routable key.
type NoKeyError struct {
	Cmd string
}

func (e *NoKeyError) Error() string {
	return fmt.Sprintf("clusterkv: no key for command: %s", e.Cmd)
}

// DiscoveryError reports that slot discovery exhausted every candidate
// node, carrying the error observed from each one.
type DiscoveryError struct {
	Errs *multierror.Error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("clusterkv: couldn't get slot allocation: %v", e.Errs)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Errs.ErrorOrNil()
}

func newDiscoveryError(perNode map[string]error) *DiscoveryError {
	me := &multierror.Error{}
	for addr, err := range perNode {
		me = multierror.Append(me, fmt.Errorf("%s: %w", addr, err))
	}
	return &DiscoveryError{Errs: me}
}
