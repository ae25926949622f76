// Package results carries the Success/Failure split used by service
// operations: infrastructure errors travel as the error return, domain
// failures travel inside the result so handlers can publish them as
// failure events instead of retrying.
package results

// OperationResult holds either a success payload or a failure payload.
// Both nil means the operation had nothing to report.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

// SuccessResult builds a result with a success payload.
func SuccessResult[S any, F any](s S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &s}
}

// FailureResult builds a result with a failure payload.
func FailureResult[S any, F any](f F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &f}
}

// IsSuccess reports whether a success payload is set.
func (r OperationResult[S, F]) IsSuccess() bool { return r.Success != nil }

// IsFailure reports whether a failure payload is set.
func (r OperationResult[S, F]) IsFailure() bool { return r.Failure != nil }
