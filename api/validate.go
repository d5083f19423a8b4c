package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"vpnbot/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createPlanRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Description  string  `json:"description" validate:"max=1000"`
	Price        float64 `json:"price" validate:"gte=0"`
	DurationDays int     `json:"duration_days" validate:"required,gte=1,lte=3650"`
	TrafficGB    int     `json:"traffic_gb" validate:"gte=0"`
	DeviceLimit  int     `json:"device_limit" validate:"gte=0,lte=100"`
	InboundID    int     `json:"inbound_id" validate:"gte=0"`
	Active       *bool   `json:"active"`
}

type createSubscriptionRequest struct {
	UserID string `json:"user_id" validate:"required"`
	PlanID string `json:"plan_id" validate:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active expired canceled"`
}

// updateUserRequest частичное обновление: заданы только переданные поля
type updateUserRequest struct {
	Username  *string `json:"username" validate:"omitempty,max=100"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Role      *string `json:"role" validate:"omitempty,oneof=user admin"`
}

func (req updateUserRequest) apply(u *storage.User) {
	if req.Username != nil {
		u.Username = *req.Username
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Role != nil {
		u.Role = storage.Role(*req.Role)
	}
}

type panelSettingsRequest struct {
	URL      string `json:"url" validate:"required,http_url"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password"`
}

type panelTestRequest struct {
	URL      string `json:"url" validate:"omitempty,http_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type createClientRequest struct {
	Email       string `json:"email" validate:"required,max=200"`
	DeviceLimit int    `json:"device_limit" validate:"gte=0,lte=100"`
	ExpiryTime  int64  `json:"expiry_time" validate:"gte=0"`
	Similar     bool   `json:"similar"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind декодирует JSON-тело и проверяет его по тегам validate
func (s *Server) bind(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, describeFieldError(fe))
			}
			return ValidationError{Msg: strings.Join(parts, "; ")}
		}
		return ValidationError{Msg: err.Error()}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: обязательное поле", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s: допустимые значения %s", fe.Field(), fe.Param())
	case "http_url":
		return fmt.Sprintf("%s: должен быть http(s) адресом", fe.Field())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s: нарушено условие %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s: нарушено условие %s", fe.Field(), fe.Tag())
	}
}

func intParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n <= 0 {
		return 0, ValidationError{Msg: fmt.Sprintf("%s: должен быть положительным числом", name)}
	}
	return n, nil
}

// queryStatus читает фильтр статуса подписки; пустое значение означает любой статус
func queryStatus(r *http.Request) (storage.SubscriptionStatus, error) {
	status := storage.SubscriptionStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		return "", ValidationError{Msg: fmt.Sprintf("status: неизвестный статус %q", status)}
	}
	return status, nil
}

// queryInt читает неотрицательный целый параметр запроса со значением по умолчанию
func queryInt(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ValidationError{Msg: fmt.Sprintf("%s: должен быть неотрицательным числом", name)}
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
