package domain

import "errors"

var (
	ErrUnknownHealth       = errors.New("unknown health segment")
	ErrUnknownTenure       = errors.New("unknown tenure category")
	ErrUnassignable        = errors.New("no eligible agent for account")
	ErrSolverInfeasible    = errors.New("batch optimization infeasible")
	ErrReviewerUnavailable = errors.New("reviewer unavailable")
)
