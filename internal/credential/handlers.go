package credential

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/types"
)

// Handlers handles HTTP requests for credential administration
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes registers HTTP routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/credentials", h.Issue).Methods("POST")
	router.HandleFunc("/credentials/{tokenID}", h.Get).Methods("GET")
	router.HandleFunc("/credentials/{tokenID}", h.Revoke).Methods("DELETE")
	router.HandleFunc("/credentials/{tokenID}/valid", h.IsValid).Methods("GET")
	router.HandleFunc("/holders/{holder}/credential", h.GetByHolder).Methods("GET")
	router.HandleFunc("/admin", h.SetAdmin).Methods("PUT")
}

// Issue handles credential issuance
func (h *Handlers) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	credential, err := h.service.Issue(r.Context(), &req)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, credential)
}

// Get handles credential retrieval by token ID
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := parseTokenID(w, r)
	if !ok {
		return
	}

	credential, err := h.service.Get(r.Context(), tokenID)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, credential)
}

// Revoke handles credential revocation
func (h *Handlers) Revoke(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := parseTokenID(w, r)
	if !ok {
		return
	}

	if err := h.service.Revoke(r.Context(), tokenID); err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"token_id": tokenID, "revoked": true})
}

// IsValid handles credential validity probes
func (h *Handlers) IsValid(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := parseTokenID(w, r)
	if !ok {
		return
	}

	valid, err := h.service.IsValid(r.Context(), tokenID)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"token_id": tokenID, "valid": valid})
}

// GetByHolder handles credential lookup by holder identity
func (h *Handlers) GetByHolder(w http.ResponseWriter, r *http.Request) {
	holder := mux.Vars(r)["holder"]

	credential, err := h.service.GetByHolder(r.Context(), holder)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, credential)
}

// SetAdmin handles authorizer rotation
func (h *Handlers) SetAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identity string `json:"identity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	if err := h.service.SetAdmin(r.Context(), req.Identity); err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"admin": req.Identity})
}

func parseTokenID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	tokenID, err := strconv.ParseUint(mux.Vars(r)["tokenID"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Token ID must be a positive integer")
		return 0, false
	}
	return tokenID, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// writeRegistryError maps a registry error to an HTTP status
func writeRegistryError(w http.ResponseWriter, err error) {
	var regErr *types.RegistryError
	if !errors.As(err, &regErr) {
		writeError(w, http.StatusInternalServerError, types.ErrCodeInternalError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch regErr.Type {
	case types.ErrorTypeValidation:
		status = http.StatusBadRequest
	case types.ErrorTypeAuthorization:
		status = http.StatusForbidden
	case types.ErrorTypeNotFound:
		status = http.StatusNotFound
	case types.ErrorTypeStateConflict:
		status = http.StatusConflict
	case types.ErrorTypeIntegrity:
		status = http.StatusUnprocessableEntity
	}

	writeError(w, status, regErr.Code, regErr.Message)
}
