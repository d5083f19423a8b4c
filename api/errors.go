package api

import (
	"errors"
	"net/http"

	"vpnbot/services"
	"vpnbot/storage"
	"vpnbot/xui"
)

// ValidationError некорректные входные данные запроса
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	return e.Msg
}

// AuthError запрос без действующей авторизации администратора
type AuthError struct {
	Msg string
}

func (e AuthError) Error() string {
	return e.Msg
}

func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

func IsAuth(err error) bool {
	var a AuthError
	return errors.As(err, &a)
}

// statusFor сопоставляет ошибку HTTP-статусу ответа
func statusFor(err error) int {
	var xerr *xui.Error
	switch {
	case IsValidation(err),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrPlanInactive):
		return http.StatusBadRequest
	case IsAuth(err):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, services.ErrNoActiveSubscription):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &xerr):
		if xerr.Status == http.StatusNotFound && xerr.Code == xui.CodePanelRejected {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
