package api

import (
	"net/http"

	"vpnbot/storage"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, cacheKeyPlans, func() (any, error) {
		return s.deps.Store.ListPlans(r.Context(), true)
	})
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.deps.Store.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, plan)
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := s.bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	plan := &storage.Plan{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		TrafficGB:    req.TrafficGB,
		DeviceLimit:  req.DeviceLimit,
		InboundID:    req.InboundID,
		Active:       req.Active == nil || *req.Active,
	}
	if err := s.deps.Store.CreatePlan(r.Context(), plan); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context(), cacheKeyPlans)

	log.Printf("API: Создан план %s (%s, %d дн.)", plan.ID, plan.Name, plan.DurationDays)
	writeMessage(w, http.StatusCreated, "план создан", plan)
}
