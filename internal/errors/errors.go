package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bible-quiz-service/internal/domain"
)

type Code codes.Code

const (
	CodeInvalidArgument    = Code(codes.InvalidArgument)
	CodeNotFound           = Code(codes.NotFound)
	CodeFailedPrecondition = Code(codes.FailedPrecondition)
	CodeAborted            = Code(codes.Aborted)
	CodeResourceExhausted  = Code(codes.ResourceExhausted)
	CodeUnauthenticated    = Code(codes.Unauthenticated)
	CodeUnavailable        = Code(codes.Unavailable)
	CodeInternal           = Code(codes.Internal)
)

func (c Code) String() string {
	return codes.Code(c).String()
}

var code2http = map[Code]int{
	CodeInvalidArgument:    http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeFailedPrecondition: http.StatusConflict,
	CodeAborted:            http.StatusConflict,
	CodeResourceExhausted:  http.StatusTooManyRequests,
	CodeUnauthenticated:    http.StatusUnauthorized,
	CodeUnavailable:        http.StatusBadGateway,
	CodeInternal:           http.StatusInternalServerError,
}

// Error is a transport-neutral failure with a status code.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	err     error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: codes.Code(code).String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) GRPCStatus() *status.Status {
	return status.New(codes.Code(e.Code), e.Message)
}

func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}

	return http.StatusInternalServerError
}

// domainCodes maps session sentinels onto codes. Order matters only for
// errors that wrap more than one sentinel.
var domainCodes = []struct {
	target error
	code   Code
}{
	{domain.ErrSessionNotFound, CodeNotFound},
	{domain.ErrDeckNotFound, CodeNotFound},
	{domain.ErrInvalidConfig, CodeInvalidArgument},
	{domain.ErrIndexOutOfRange, CodeInvalidArgument},
	{domain.ErrNothingSelected, CodeFailedPrecondition},
	{domain.ErrInvalidPhase, CodeFailedPrecondition},
	{domain.ErrQuestionAnswered, CodeFailedPrecondition},
	{domain.ErrHintUnavailable, CodeFailedPrecondition},
	{domain.ErrOperationInFlight, CodeAborted},
	{domain.ErrStaleResponse, CodeAborted},
	{domain.ErrCooldownActive, CodeResourceExhausted},
	{domain.ErrRateLimited, CodeResourceExhausted},
	{domain.ErrMissingCredential, CodeUnauthenticated},
	{domain.ErrMalformedResponse, CodeUnavailable},
	{domain.ErrUpstream, CodeUnavailable},
}

// Convert returns err as an *Error, translating domain sentinels. Anything
// unknown becomes Internal.
func Convert(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	for _, dc := range domainCodes {
		if errors.Is(err, dc.target) {
			return New(dc.code, WithCause(err), WithMessagef("%s", err.Error()))
		}
	}

	return Internal(err)
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}
