package handlers

import (
	"errors"
	"net/http"

	"github.com/aaroha-fest/sargam-portal/middleware"
	"github.com/aaroha-fest/sargam-portal/models"
	"github.com/aaroha-fest/sargam-portal/services"
	"github.com/go-chi/chi/v5"
)

// Payment-proof screenshots are capped well below the general JSON
// body limit since phones produce multi-megabyte images.
const maxPaymentProofBytes = 5 << 20

type RegistrationHandler struct {
	registrationService services.RegistrationService
	accessGate          *services.AccessGate
}

func NewRegistrationHandler(registrationService services.RegistrationService, accessGate *services.AccessGate) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		accessGate:          accessGate,
	}
}

func (h *RegistrationHandler) EventInfo(w http.ResponseWriter, r *http.Request) {
	successResponse(w, http.StatusOK, "", models.SargamEventInfo())
}

func (h *RegistrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}

	var input services.CreateRegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	reg, payment, err := h.registrationService.Create(r.Context(), caller.UserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusCreated, "Registration submitted successfully", map[string]interface{}{
		"registration":    reg,
		"payment_details": payment,
	})
}

func (h *RegistrationHandler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}

	regs, err := h.registrationService.ListByUser(r.Context(), caller.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "", map[string]interface{}{
		"count":         len(regs),
		"registrations": regs,
	})
}

// authorize runs the owner-or-admin gate for the registration in the
// URL. It writes the error response itself and reports whether the
// caller may proceed.
func (h *RegistrationHandler) authorize(w http.ResponseWriter, r *http.Request, registrationID string) bool {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return false
	}
	if err := h.accessGate.Authorize(r.Context(), caller, registrationID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return false
	}
	return true
}

func (h *RegistrationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}

	reg, err := h.registrationService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "", reg)
}

func (h *RegistrationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}

	var input services.UpdateRegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	reg, err := h.registrationService.UpdateFields(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "Registration updated successfully", reg)
}

func (h *RegistrationHandler) UploadPaymentProof(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPaymentProofBytes)
	if err := r.ParseMultipartForm(maxPaymentProofBytes); err != nil {
		badRequestResponse(w, errors.New("file too large or malformed multipart body"))
		return
	}

	file, header, err := r.FormFile("payment_proof")
	if err != nil {
		badRequestResponse(w, errors.New("payment_proof file is required"))
		return
	}
	defer file.Close()

	reg, err := h.registrationService.AttachPaymentProof(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "Payment proof uploaded successfully", reg)
}

func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.RegistrationFilter{
		Status:        r.URL.Query().Get("status"),
		PaymentStatus: r.URL.Query().Get("payment_status"),
	}

	regs, err := h.registrationService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "", map[string]interface{}{
		"count":         len(regs),
		"registrations": regs,
	})
}

func (h *RegistrationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registrationService.Stats(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "", stats)
}

func (h *RegistrationHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input services.UpdatePaymentStatusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	reg, err := h.registrationService.UpdatePaymentStatus(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "Payment status updated successfully", reg)
}

func (h *RegistrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.registrationService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "Registration deleted successfully", nil)
}
