package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/example/core"
	"github.com/AntonStoeckl/uow-domain-events-go/postgresuow"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// unitOfWork is what the handler needs from a postgresuow.Session.
type unitOfWork interface {
	domainevents.UnitOfWork
	Add(entity postgresuow.Entity) error
}

type createRootRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Children []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"children"`
}

type createRootResponse struct {
	ID       string   `json:"id"`
	Children []string `json:"children"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type rootsHandler struct {
	newUnitOfWork func() unitOfWork
	dispatcher    *domainevents.Dispatcher
	logger        *slog.Logger
	now           func() time.Time
}

func newRootsHandler(newUnitOfWork func() unitOfWork, dispatcher *domainevents.Dispatcher, logger *slog.Logger) *rootsHandler {
	return &rootsHandler{
		newUnitOfWork: newUnitOfWork,
		dispatcher:    dispatcher,
		logger:        logger,
		now:           time.Now,
	}
}

// createRoot creates a Root with its children in one unit of work and publishes the recorded events.
func (h *rootsHandler) createRoot(w http.ResponseWriter, r *http.Request) {
	var req createRootRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	now := h.now()

	root, err := core.CreateRoot(idOrNew(req.ID), req.Name, now)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	response := createRootResponse{ID: root.ID, Children: []string{}}

	for _, child := range req.Children {
		added, addErr := root.AddChild(idOrNew(child.ID), child.Name, now)
		if addErr != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: addErr.Error()})
			return
		}
		response.Children = append(response.Children, added.ID)
	}

	uow := h.newUnitOfWork()
	for _, entity := range root.Entities() {
		if err := uow.Add(entity); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
	}

	session, err := h.dispatcher.NewSession(uow)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	defer func() { _ = session.Close(context.WithoutCancel(r.Context())) }()

	if err := session.SaveChanges(r.Context()); err != nil {
		if errors.Is(err, domainevents.ErrDispatchFailed) {
			// the data is committed, only the notification failed
			h.logger.Warn("root saved but dispatching events failed", "root_id", root.ID, "error", err.Error())
			writeJSON(w, http.StatusCreated, response)
			return
		}

		h.logger.Error("saving root failed", "root_id", root.ID, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "saving root failed"})
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}

	return uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
