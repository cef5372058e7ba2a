package services

import (
	"errors"
	"net/http"

	"github.com/thulafunds/crowdfund/repository"
)

// ServiceError carries the HTTP status a handler should answer with
type ServiceError struct {
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newError(status int, message string) *ServiceError {
	return &ServiceError{Status: status, Message: message}
}

func internalError(message string, err error) *ServiceError {
	return &ServiceError{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// notFoundOr returns a 404 for missing rows and a 500 for everything else
func notFoundOr(err error, notFound, failed string) *ServiceError {
	if repository.IsNotFound(err) {
		return &ServiceError{Status: http.StatusNotFound, Message: notFound, Err: err}
	}
	return internalError(failed, err)
}

// AsServiceError unwraps err into a *ServiceError when it is one
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	ErrUnauthenticated = newError(http.StatusUnauthorized, "User not authenticated")
)
