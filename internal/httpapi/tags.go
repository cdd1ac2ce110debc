package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/arawak/toolshelf/internal/apperr"
	"github.com/arawak/toolshelf/internal/store"
	"github.com/arawak/toolshelf/internal/tagname"
)

const (
	msgTagExists    = "Tag already exists."
	msgNameRequired = "Tag name is required."
	msgInternal     = "Internal server error"

	maxTagBodyBytes = 16 * 1024
)

type messageResponse struct {
	Message string `json:"message"`
}

type tagResponse struct {
	Message string `json:"message,omitempty"`
	Name    string `json:"name"`
}

func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListTags(r.Context())
	if err != nil {
		s.logger.Error("list tags failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) CreateTag(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTagBodyBytes)
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, msgNameRequired)
		return
	}
	raw, ok := body["name"].(string)
	if !ok || tagname.Normalize(raw) == "" {
		writeMessage(w, http.StatusBadRequest, msgNameRequired)
		return
	}

	res, err := s.store.CreateTag(r.Context(), raw)
	if err != nil {
		if apperr.IsKind(err, apperr.KindValidation) {
			writeMessage(w, http.StatusBadRequest, msgNameRequired)
			return
		}
		s.logger.Error("create tag failed", "tag", raw, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}

	switch res.Status {
	case store.StatusCreated:
		s.logger.Info("tag created", "tag", res.Tag.Name, "principal", principalID(r))
		writeJSON(w, http.StatusCreated, tagResponse{Name: res.Tag.Name})
	case store.StatusExisted:
		writeJSON(w, http.StatusOK, tagResponse{Message: msgTagExists, Name: res.Tag.Name})
	case store.StatusConflict:
		s.logger.Info("tag creation lost race", "tag", res.Tag.Name)
		writeMessage(w, http.StatusConflict, msgTagExists)
	default:
		s.logger.Error("unexpected create status", "tag", res.Tag.Name, "status", res.Status.String())
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}
