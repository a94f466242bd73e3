package handler

import (
	"net/http"
	"net/url"
	"spacebook/internal/spaces/service"
	apperrors "spacebook/pkg/errors"
	httputil "spacebook/pkg/http"
	"spacebook/pkg/logger"
	"spacebook/pkg/model"
	"strconv"

	"github.com/julienschmidt/httprouter"
)

type SpaceHandler struct {
	service service.SpaceService
	log     *logger.Logger
}

func NewSpaceHandler(service service.SpaceService, log *logger.Logger) *SpaceHandler {
	return &SpaceHandler{
		service: service,
		log:     log,
	}
}

func (h *SpaceHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var space model.Space
	if err := httputil.DecodeJSON(r, &space); err != nil {
		h.writeError(w, r, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &space); err != nil {
		h.writeError(w, r, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, space); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *SpaceHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	space, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, r, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, space); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *SpaceHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, r, "GetAll", err)
		return
	}

	filter, err := extractFilter(r.URL.Query())
	if err != nil {
		h.writeError(w, r, "GetAll", err)
		return
	}

	spaces, total, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, r, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, spaces, total, limit, offset); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write paginated response", "handler", "GetAll", "error", err)
	}
}

func (h *SpaceHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.SpaceUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, r, "Update", err)
		return
	}

	space, err := h.service.Update(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, r, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, space); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write success response", "handler", "Update", "error", err)
	}
}

func (h *SpaceHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, r, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

// extractFilter reads ?min_capacity=&max_capacity=&search=&type=.
func extractFilter(query url.Values) (model.SpaceFilter, error) {
	filter := model.SpaceFilter{
		Search: query.Get("search"),
		Type:   model.SpaceType(query.Get("type")),
	}

	for name, dst := range map[string]*int{
		"min_capacity": &filter.MinCapacity,
		"max_capacity": &filter.MaxCapacity,
	} {
		s := query.Get(name)
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return model.SpaceFilter{}, apperrors.InvalidInput("invalid " + name + " parameter: " + s)
		}
		*dst = v
	}

	return filter, nil
}

func (h *SpaceHandler) writeError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.ErrorContext(r.Context(), "failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *SpaceHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/spaces", h.Create)
	router.GET("/api/v1/spaces", h.GetAll)
	router.GET("/api/v1/spaces/id/:id", h.GetByID)
	router.PUT("/api/v1/spaces/id/:id", h.Update)
	router.DELETE("/api/v1/spaces/id/:id", h.Delete)
}
