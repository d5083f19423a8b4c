package api

import (
	"net/http"

	"vpnbot/storage"

	"github.com/go-chi/chi/v5"
)

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := s.bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.deps.Subscriptions.Subscribe(r.Context(), req.UserID, req.PlanID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "подписка создана", sub)
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	status, err := queryStatus(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 50, 500)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	subs, err := s.deps.Store.ListSubscriptions(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, subs)
}

func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.deps.Store.GetSubscription(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sub)
}

func (s *Server) updateSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := s.bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.deps.Subscriptions.UpdateStatus(r.Context(), chi.URLParam(r, "id"), storage.SubscriptionStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "статус обновлен", sub)
}

func (s *Server) activateSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.deps.Subscriptions.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context(), cacheKeyInbounds)
	writeMessage(w, http.StatusOK, "подписка активирована", sub)
}

func (s *Server) renewSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.deps.Subscriptions.Renew(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context(), cacheKeyInbounds)
	writeMessage(w, http.StatusOK, "подписка продлена", sub)
}
