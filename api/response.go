package api

import (
	"net/http"
	"time"

	"vpnbot/xui"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Response общий формат ответов API
type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(resp)
	if err != nil {
		log.Printf("API: Ошибка сериализации ответа: %v", err)
		http.Error(w, `{"success":false,"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// writeError отдает ошибку в общем формате. Внутренние ошибки не раскрываются клиенту.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := Response{Success: false, Error: err.Error()}

	if xui.CodeOf(err) != "" {
		res := xui.AsResult(err)
		resp.Error = res.Message
		resp.Code = res.Code
	}
	if status == http.StatusInternalServerError {
		log.Printf("API: %s %s: внутренняя ошибка: %v", r.Method, r.URL.Path, err)
		resp.Error = "внутренняя ошибка сервера"
	}
	writeJSON(w, status, resp)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ValidationError{Msg: "некорректный JSON: " + err.Error()}
	}
	return nil
}

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
