package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/advisor/internal/types"
)

// Error mapping for the Evaluator service.
// Validation errors map to INVALID_ARGUMENT (raised in validate).
// Engine faults (unsupported operator) map to INTERNAL.
// Context cancellation maps to CANCELED or DEADLINE_EXCEEDED.
// Per-rule failures never reach here: they are reported in RuleErrors.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, types.ErrNilContext):
		return status.Error(codes.InvalidArgument, err.Error())
	}

	var engineErr *types.EngineError
	if errors.As(err, &engineErr) {
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(codes.Unknown, err.Error())
}
