package stream

import (
	"context"
	"errors"
	"fmt"
	"net"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/dbext/podstream/internal/cluster"
)

// FailureClass is the closed taxonomy terminal error records are tagged
// with. Classification is a pure function of the failure; no retries happen
// here or anywhere else in this package.
type FailureClass string

const (
	ClassConnectionFailure FailureClass = "connection_failure"
	ClassNotFound          FailureClass = "not_found"
	ClassForbidden         FailureClass = "forbidden"
	ClassTimeout           FailureClass = "timeout"
	ClassMalformedResponse FailureClass = "malformed_response"
	ClassNonzeroExit       FailureClass = "nonzero_exit"
)

// Classify maps a collaborator failure to its class. Unrecognized failures
// count as connection failures: everything the backends surface that is not
// an API-level rejection or a decode problem is some flavor of the transport
// giving up.
func Classify(err error) FailureClass {
	switch {
	case apierrors.IsNotFound(err),
		errors.Is(err, cluster.ErrNotFound),
		errors.Is(err, cluster.ErrNoWorkerPods):
		return ClassNotFound
	case apierrors.IsForbidden(err), apierrors.IsUnauthorized(err):
		return ClassForbidden
	case apierrors.IsTimeout(err),
		apierrors.IsServerTimeout(err),
		errors.Is(err, context.DeadlineExceeded),
		isNetTimeout(err):
		return ClassTimeout
	case errors.Is(err, cluster.ErrMalformedStream),
		apierrors.IsBadRequest(err):
		return ClassMalformedResponse
	default:
		return ClassConnectionFailure
	}
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ErrorRecord builds the single terminal error record for a failed
// invocation. Records already emitted before the failure stay valid.
func ErrorRecord(src Source, err error) Record {
	return Record{
		Timestamp: now(),
		Source:    src,
		State:     StateError,
		Detail:    fmt.Sprintf("%s: %v", Classify(err), err),
	}
}
