package handler

import (
	"net/http"
	"slices"
	"strconv"

	"spacebook/internal/reservations/service"
	apperrors "spacebook/pkg/errors"
	httputil "spacebook/pkg/http"
	"spacebook/pkg/logger"
	"spacebook/pkg/middleware"
	"spacebook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	service      service.ReservationService
	availability service.AvailabilityService
	log          *logger.Logger
}

func NewReservationHandler(service service.ReservationService, availability service.AvailabilityService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service:      service,
		availability: availability,
		log:          log,
	}
}

// Create takes the owner from the body, falling back to the X-Owner-ID header set by
// the identity layer in front of this service.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ReservationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "Create", err)
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = r.Header.Get(middleware.OwnerIDHeader)
	}

	reservation, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reservation, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, r, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write success response", "handler", "GetByID", "error", err)
	}
}

// List serves ?space_id= or ?owner_id=; without either it lists the caller's own reservations.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, r, "List", err)
		return
	}

	query := r.URL.Query()
	var (
		reservations []*model.Reservation
		total        int64
	)
	switch spaceID, ownerID := query.Get("space_id"), query.Get("owner_id"); {
	case spaceID != "" && ownerID != "":
		err = apperrors.InvalidInput("use either space_id or owner_id, not both")
	case spaceID != "":
		reservations, total, err = h.service.ListBySpace(r.Context(), spaceID, limit, offset)
	default:
		if ownerID == "" {
			ownerID = r.Header.Get(middleware.OwnerIDHeader)
		}
		reservations, total, err = h.service.ListByOwner(r.Context(), ownerID, limit, offset)
	}
	if err != nil {
		h.writeError(w, r, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, limit, offset); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write paginated response", "handler", "List", "error", err)
	}
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.ReservationUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, r, "Update", err)
		return
	}

	if _, err := h.service.Update(r.Context(), ps.ByName("id"), &update); err != nil {
		h.writeError(w, r, "Update", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Cancel(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, r, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) AvailableSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	spaceID := query.Get("space_id")
	if spaceID == "" {
		h.writeError(w, r, "AvailableSlots", apperrors.InvalidInput("space_id is required"))
		return
	}
	date := query.Get("date")
	if date == "" {
		h.writeError(w, r, "AvailableSlots", apperrors.InvalidInput("date is required"))
		return
	}

	granularity := 0
	if s := query.Get("granularity"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			h.writeError(w, r, "AvailableSlots", apperrors.InvalidInput("granularity must be a positive number of minutes"))
			return
		}
		granularity = v
	}

	slots, err := h.availability.Availability(r.Context(), spaceID, date, granularity)
	if err != nil {
		h.writeError(w, r, "AvailableSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, slices.Collect(slots)); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write success response", "handler", "AvailableSlots", "error", err)
	}
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.ErrorContext(r.Context(), "failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations", h.List)
	router.GET("/api/v1/reservations/available-slots", h.AvailableSlots)
	router.GET("/api/v1/reservations/id/:id", h.GetByID)
	router.PATCH("/api/v1/reservations/id/:id", h.Update)
	router.DELETE("/api/v1/reservations/id/:id", h.Cancel)
}
