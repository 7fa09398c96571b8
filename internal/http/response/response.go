// Package response формирует единые JSON-ответы HTTP-обработчиков.
//
// Успешный ответ: {"statusCode", "data", "message", "success": true}.
// Ошибка: {"statusCode", "message", "success": false, "errors": [...]}.
// Обработчики возвращают error, а Handle превращает его в ответ ровно один раз.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// Response — успешный ответ сервера.
type Response struct {
	StatusCode int    `json:"statusCode" example:"200"`
	Data       any    `json:"data"`
	Message    string `json:"message" example:"Success"`
	Success    bool   `json:"success" example:"true"`
}

// ErrorResponse — ответ с ошибкой. Используется и в аннотациях @Failure.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode" example:"400"`
	Message    string   `json:"message" example:"All fields are required"`
	Success    bool     `json:"success" example:"false"`
	Errors     []string `json:"errors"`
}

// HandlerFunc — обработчик, который возвращает ошибку вместо записи ответа.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Send пишет успешный ответ с кодом code.
func Send(w http.ResponseWriter, r *http.Request, code int, data any, message string) {
	if data == nil {
		data = struct{}{}
	}
	render.Status(r, code)
	render.JSON(w, r, Response{
		StatusCode: code,
		Data:       data,
		Message:    message,
		Success:    code < http.StatusBadRequest,
	})
}

// Fail пишет ответ с ошибкой.
func Fail(w http.ResponseWriter, r *http.Request, err *apierror.Error) {
	details := err.Errors
	if details == nil {
		details = []string{}
	}
	render.Status(r, err.StatusCode)
	render.JSON(w, r, ErrorResponse{
		StatusCode: err.StatusCode,
		Message:    err.Message,
		Success:    false,
		Errors:     details,
	})
}

// Handle вызывает fn и превращает возвращённую ошибку в ответ.
// Ошибки не из apierror отдаются как 500 без подробностей.
func Handle(w http.ResponseWriter, r *http.Request, log *slog.Logger, fn HandlerFunc) {
	err := fn(w, r)
	if err == nil {
		return
	}

	apiErr := apierror.From(err)
	log = log.With(
		slog.Int("status", apiErr.StatusCode),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Error(apiErr.Message, sl.Err(errors.Unwrap(apiErr)))
	} else {
		log.Info(apiErr.Message)
	}
	Fail(w, r, apiErr)
}

// Wrap превращает HandlerFunc в http.HandlerFunc.
func Wrap(log *slog.Logger, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Handle(w, r, log, fn)
	}
}

// ValidationError собирает ошибки валидатора в 400 с сообщением message.
// Каждое нарушение описывается отдельной строкой в errors.
func ValidationError(message string, err error) *apierror.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return apierror.BadRequest(message)
	}

	var errsMsgs []string
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return apierror.BadRequest(message).WithDetails(errsMsgs...)
}
