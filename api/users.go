package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
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

	users, err := s.deps.Store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, users)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := s.bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.deps.Store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.apply(user)
	if err := s.deps.Store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	log.Printf("API: Пользователь %s обновлен, роль=%s", user.ID, user.Role)
	writeMessage(w, http.StatusOK, "пользователь обновлен", user)
}

// deleteUser удаляет пользователя и его подписки из хранилища.
// Клиенты в панели 3x-ui остаются и истекают по своему сроку.
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Store.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	log.Printf("API: Пользователь %s удален", id)
	writeMessage(w, http.StatusOK, "пользователь удален", nil)
}

func (s *Server) listUserSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if _, err := s.deps.Store.GetUser(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	subs, err := s.deps.Subscriptions.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, subs)
}
