package repository

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schoolmsg/pkg/errors"
)

// storeError classifies a Firestore failure. Unreachable or slow backends are
// reported as Unavailable so callers know the request is safe to retry when idempotent.
func storeError(message string, err error) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return errors.Unavailable(message, err)
	}
	return errors.Internal(message, err)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
