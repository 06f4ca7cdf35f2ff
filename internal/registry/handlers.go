package registry

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/types"
)

// Handlers handles HTTP requests for the prescription registry
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
	router.HandleFunc("/prescriptions", h.Create).Methods("POST")
	router.HandleFunc("/prescriptions/{prescriptionID}", h.Get).Methods("GET")
	router.HandleFunc("/prescriptions/{prescriptionID}/dispense", h.Dispense).Methods("POST")
	router.HandleFunc("/prescriptions/{prescriptionID}/cancel", h.Cancel).Methods("POST")
	router.HandleFunc("/prescriptions/{prescriptionID}/dispensable", h.IsDispensable).Methods("GET")
	router.HandleFunc("/prescriptions/{prescriptionID}/proof", h.GetWithProof).Methods("POST")
	router.HandleFunc("/prescriptions/{prescriptionID}/alerts", RequireRole("admin", h.TamperAlerts)).Methods("GET")

	router.HandleFunc("/patients/{patientDataHash}/prescriptions", h.PatientHistory).Methods("GET")
	router.HandleFunc("/doctors/{tokenID}/prescriptions", RequireRole("admin", h.DoctorPrescriptions)).Methods("GET")
	router.HandleFunc("/pharmacists/{tokenID}/dispensals", RequireRole("admin", h.PharmacistDispensals)).Methods("GET")

	router.HandleFunc("/me/prescriptions", h.MyPrescriptions).Methods("GET")
	router.HandleFunc("/me/dispensals", h.MyDispensals).Methods("GET")

	router.HandleFunc("/metadata/{cid}", h.Metadata).Methods("GET")
}

// Create handles prescription creation
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	prescription, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, prescription)
}

// Get handles prescription retrieval
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	prescriptionID, ok := parsePrescriptionID(w, r)
	if !ok {
		return
	}

	prescription, err := h.service.Get(r.Context(), prescriptionID)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prescription)
}

// Dispense handles prescription dispensation
func (h *Handlers) Dispense(w http.ResponseWriter, r *http.Request) {
	prescriptionID, ok := parsePrescriptionID(w, r)
	if !ok {
		return
	}

	var req DispenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	prescription, err := h.service.Dispense(r.Context(), prescriptionID, &req)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prescription)
}

// Cancel handles prescription cancellation
func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	prescriptionID, ok := parsePrescriptionID(w, r)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	prescription, err := h.service.Cancel(r.Context(), prescriptionID, req.Reason)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prescription)
}

// IsDispensable handles dispensability probes. The hashes to check against
// the stored record come in as query parameters.
func (h *Handlers) IsDispensable(w http.ResponseWriter, r *http.Request) {
	prescriptionID, ok := parsePrescriptionID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	check, err := h.service.IsDispensable(r.Context(), prescriptionID,
		query.Get("patient_data_hash"), query.Get("prescription_data_hash"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, check)
}

// GetWithProof handles walletless patient proof reads. POST so the patient
// secret travels in the body, never in a URL that would land in access logs.
func (h *Handlers) GetWithProof(w http.ResponseWriter, r *http.Request) {
	prescriptionID, ok := parsePrescriptionID(w, r)
	if !ok {
		return
	}

	var req struct {
		PatientSecret string `json:"patient_secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	proof, err := h.service.GetWithProof(r.Context(), prescriptionID, req.PatientSecret)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, proof)
}

// TamperAlerts lists recorded hash-mismatch rejections for a prescription
func (h *Handlers) TamperAlerts(w http.ResponseWriter, r *http.Request) {
	prescriptionID, ok := parsePrescriptionID(w, r)
	if !ok {
		return
	}

	alerts, err := h.service.TamperAlerts(r.Context(), prescriptionID)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, alerts)
}

// PatientHistory handles patient history queries
func (h *Handlers) PatientHistory(w http.ResponseWriter, r *http.Request) {
	patientDataHash := mux.Vars(r)["patientDataHash"]

	history, err := h.service.PatientHistory(r.Context(), patientDataHash)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// DoctorPrescriptions handles admin oversight queries by doctor
func (h *Handlers) DoctorPrescriptions(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := parseVarUint(w, r, "tokenID")
	if !ok {
		return
	}

	prescriptions, err := h.service.DoctorPrescriptions(r.Context(), tokenID)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prescriptions)
}

// PharmacistDispensals handles admin oversight queries by pharmacist
func (h *Handlers) PharmacistDispensals(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := parseVarUint(w, r, "tokenID")
	if !ok {
		return
	}

	dispensals, err := h.service.PharmacistDispensals(r.Context(), tokenID)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dispensals)
}

// MyPrescriptions lists the caller's own prescriptions
func (h *Handlers) MyPrescriptions(w http.ResponseWriter, r *http.Request) {
	prescriptions, err := h.service.MyPrescriptions(r.Context())
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prescriptions)
}

// MyDispensals lists the caller's own dispensals
func (h *Handlers) MyDispensals(w http.ResponseWriter, r *http.Request) {
	dispensals, err := h.service.MyDispensals(r.Context())
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dispensals)
}

// Metadata serves the off-chain payload for a CID
func (h *Handlers) Metadata(w http.ResponseWriter, r *http.Request) {
	cid := mux.Vars(r)["cid"]

	data, err := h.service.Metadata(r.Context(), cid)
	if err != nil {
		writeError(w, http.StatusNotFound, types.ErrCodeNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func parsePrescriptionID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	return parseVarUint(w, r, "prescriptionID")
}

func parseVarUint(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	value, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", name+" must be a positive integer")
		return 0, false
	}
	return value, true
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
