package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/model"
)

// Status tags a Result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Code is the closed set of gateway failure codes.
// Not-found codes are reserved for real platform 404s; anything unexpected
// collapses into the operation's generic failure code.
type Code string

const (
	ProductsFetchFailure           Code = "ProductsFetchFailure"
	ProductNotFound                Code = "ProductNotFound"
	ProductFetchFailure            Code = "ProductFetchFailure"
	CategoriesFetchFailure         Code = "CategoriesFetchFailure"
	CategoryNotFound               Code = "CategoryNotFound"
	CategoryFetchFailure           Code = "CategoryFetchFailure"
	PriceBoundsFailure             Code = "PriceBoundsFailure"
	CartFetchFailure               Code = "CartFetchFailure"
	CartTotalsFailure              Code = "CartTotalsFailure"
	AddCartItemFailure             Code = "AddCartItemFailure"
	UpdateCartItemFailure          Code = "UpdateCartItemFailure"
	RemoveCartItemFailure          Code = "RemoveCartItemFailure"
	CheckoutCreationFailure        Code = "CheckoutCreationFailure"
	CheckoutRedirectSessionFailure Code = "CheckoutRedirectSessionFailure"
	OrderNotFound                  Code = "OrderNotFound"
	OrderFetchFailure              Code = "OrderFetchFailure"
)

// IsNotFound reports whether the code is a domain not-found condition.
func (c Code) IsNotFound() bool {
	switch c {
	case ProductNotFound, CategoryNotFound, OrderNotFound:
		return true
	}
	return false
}

// HTTPStatus maps the code onto the status the HTTP surface answers with.
func (c Code) HTTPStatus() int {
	if c.IsNotFound() {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// Failure is the error half of a Result. It also implements error so the cart
// cache can hand it to callers as a rejected operation.
type Failure struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// APIError converts the failure for the HTTP error envelope.
func (f *Failure) APIError() *model.APIError {
	return &model.APIError{
		Code:       string(f.Code),
		Message:    f.Message,
		StatusCode: f.Code.HTTPStatus(),
		Err:        f,
	}
}

// Result is a tagged success/failure value.
type Result[T any] struct {
	Status  Status   `json:"status"`
	Body    T        `json:"body,omitempty"`
	Failure *Failure `json:"error,omitempty"`
}

// OK reports whether the result is a success.
func (r Result[T]) OK() bool {
	return r.Status == StatusSuccess
}

// Unwrap returns the body, or the failure as an error.
func (r Result[T]) Unwrap() (T, error) {
	if r.OK() {
		return r.Body, nil
	}
	var zero T
	return zero, r.Failure
}

// Success wraps a body.
func Success[T any](body T) Result[T] {
	return Result[T]{Status: StatusSuccess, Body: body}
}

// Fail builds a failure result with an explicit message.
func Fail[T any](code Code, message string) Result[T] {
	return Result[T]{
		Status:  StatusFailure,
		Failure: &Failure{Code: code, Message: message},
	}
}

// FailWith carries an existing failure into a result of another body type.
func FailWith[T any](f *Failure) Result[T] {
	return Result[T]{Status: StatusFailure, Failure: f}
}

// Classify turns a platform error into a failure result. When notFound is
// non-empty and err is a platform 404, the domain not-found code is used;
// everything else becomes the generic code for the operation.
func Classify[T any](err error, generic, notFound Code) Result[T] {
	msg := err.Error()
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	if notFound != "" && model.IsNotFound(err) {
		return Fail[T](notFound, msg)
	}
	return Fail[T](generic, msg)
}
