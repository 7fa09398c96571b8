// Package apierror описывает типизированную ошибку уровня API.
//
// Сервисы возвращают *Error с HTTP-кодом и сообщением для клиента,
// внутренняя причина хранится в поле Err и попадает только в лог.
package apierror

import (
	"errors"
	"net/http"
)

// Error — ошибка, которую верхний уровень превращает в единый JSON-ответ.
type Error struct {
	StatusCode int
	Message    string
	Errors     []string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создаёт ошибку с произвольным статусом.
func New(code int, message string, err error) *Error {
	return &Error{
		StatusCode: code,
		Message:    message,
		Err:        err,
	}
}

// WithDetails добавляет список уточняющих сообщений (например, ошибки валидации).
func (e *Error) WithDetails(details ...string) *Error {
	e.Errors = append(e.Errors, details...)
	return e
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

func Unauthorized(message string, err error) *Error {
	return New(http.StatusUnauthorized, message, err)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, message, nil)
}

func TooManyRequests(message string) *Error {
	return New(http.StatusTooManyRequests, message, nil)
}

// Internal — ошибка 500; err логируется, но не отдаётся клиенту.
func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// From достаёт *Error из цепочки. Любая другая ошибка превращается в 500.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(http.StatusText(http.StatusInternalServerError), err)
}

// StatusCode возвращает HTTP-код ошибки, 500 для неизвестных ошибок.
func StatusCode(err error) int {
	return From(err).StatusCode
}
