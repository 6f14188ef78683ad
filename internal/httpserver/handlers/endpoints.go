package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
)

const maxEndpointBody = 16 << 10

type endpointRequest struct {
	Address string `json:"address"`
	Label   string `json:"label"`
}

func decodeEndpoint(w http.ResponseWriter, r *http.Request) (endpointRequest, error) {
	var req endpointRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEndpointBody))
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", domain.ErrValidation)
	}
	return req, nil
}

func ListEndpoints(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Endpoints.List())
	}
}

func GetEndpoint(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ep, err := d.Endpoints.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ep)
	}
}

func CreateEndpoint(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeEndpoint(w, r)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		ep, err := d.Endpoints.Add(req.Address, req.Label)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.Header().Set("Location", "/api/endpoints/"+ep.ID)
		writeJSON(w, http.StatusCreated, ep)
	}
}

func UpdateEndpoint(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeEndpoint(w, r)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		ep, err := d.Endpoints.Edit(chi.URLParam(r, "id"), req.Address, req.Label)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ep)
	}
}

func DeleteEndpoint(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Endpoints.Delete(chi.URLParam(r, "id")); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
