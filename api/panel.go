package api

import (
	"net/http"

	"vpnbot/xui"

	log "github.com/sirupsen/logrus"
)

type panelSettingsView struct {
	URL         string `json:"url"`
	Username    string `json:"username"`
	HasPassword bool   `json:"has_password"`
	TokenValid  bool   `json:"token_valid"`
}

func (s *Server) panelSettingsView() panelSettingsView {
	settings := s.deps.Panel.Settings()
	return panelSettingsView{
		URL:         settings.URL,
		Username:    settings.Username,
		HasPassword: settings.Password != "",
		TokenValid:  s.deps.Panel.IsTokenValid(),
	}
}

func (s *Server) getPanelSettings(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.panelSettingsView())
}

func (s *Server) updatePanelSettings(w http.ResponseWriter, r *http.Request) {
	var req panelSettingsRequest
	if err := s.bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	settings := xui.Settings{URL: req.URL, Username: req.Username, Password: req.Password}
	if settings.Password == "" {
		settings.Password = s.deps.Panel.Settings().Password
	}
	s.deps.Panel.UpdateSettings(settings)
	s.persistPanelSettings()
	s.invalidate(r.Context(), cacheKeyInbounds)

	writeMessage(w, http.StatusOK, "настройки панели обновлены", s.panelSettingsView())
}

// testPanel проверяет доступность панели HEAD-запросом, затем авторизацию.
// При успехе проверенные настройки становятся текущими.
func (s *Server) testPanel(w http.ResponseWriter, r *http.Request) {
	var req panelTestRequest
	if r.ContentLength != 0 {
		if err := s.bind(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	override := xui.Settings{URL: req.URL, Username: req.Username, Password: req.Password}

	target := override.URL
	if target == "" {
		target = s.deps.Panel.Settings().URL
	}
	if err := s.deps.Panel.Probe(r.Context(), target); err != nil {
		writePanelTestFailure(w, "probe", target, err)
		return
	}
	if err := s.deps.Panel.TestConnection(r.Context(), override); err != nil {
		writePanelTestFailure(w, "login", target, err)
		return
	}

	s.persistPanelSettings()
	s.invalidate(r.Context(), cacheKeyInbounds)
	writeMessage(w, http.StatusOK, "подключение к панели успешно", map[string]any{
		"url":           target,
		"reachable":     true,
		"authenticated": true,
	})
}

func writePanelTestFailure(w http.ResponseWriter, stage, target string, err error) {
	res := xui.AsResult(err)
	log.Printf("API: Проверка панели %s не пройдена на этапе %s: %s (%s)", target, stage, res.Message, res.Code)
	writeJSON(w, statusFor(err), Response{
		Success: false,
		Error:   res.Message,
		Code:    res.Code,
		Data: map[string]any{
			"stage":         stage,
			"url":           target,
			"reachable":     stage != "probe",
			"authenticated": false,
		},
	})
}

func (s *Server) persistPanelSettings() {
	if s.deps.PanelSettings == nil {
		return
	}
	if err := s.deps.PanelSettings.Save(s.deps.Panel.Settings()); err != nil {
		log.Printf("API: Ошибка сохранения настроек панели: %v", err)
	}
}

func (s *Server) listInbounds(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, cacheKeyInbounds, func() (any, error) {
		return s.deps.Panel.GetInbounds(r.Context())
	})
}

func (s *Server) createPanelClient(w http.ResponseWriter, r *http.Request) {
	inboundID, err := intParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createClientRequest
	if err := s.bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var result *xui.CreateClientResult
	if req.Similar {
		var inbound *xui.Inbound
		inbound, err = s.deps.Panel.GetInbound(r.Context(), inboundID)
		if err == nil {
			result, err = s.deps.Panel.CreateSimilarClient(r.Context(), *inbound, req.Email)
		}
	} else {
		result, err = s.deps.Panel.CreateClient(r.Context(), inboundID, req.Email, req.DeviceLimit, req.ExpiryTime)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidate(r.Context(), cacheKeyInbounds)
	writeMessage(w, http.StatusCreated, "клиент добавлен", result)
}
