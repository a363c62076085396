package claims

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/openhis/claimsbridge/internal/platform/auth"
	"github.com/openhis/claimsbridge/internal/platform/fhir"
	"github.com/openhis/claimsbridge/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	// Read endpoints – claims staff and reviewers
	readGroup := api.Group("", auth.RequireRole(auth.RoleClaims, auth.RoleReviewer))
	readGroup.GET("/claims", h.ListClaims)
	readGroup.GET("/claims/:id/response", h.GetResponse)

	// Write endpoints – claims staff only
	writeGroup := api.Group("", auth.RequireRole(auth.RoleClaims))
	writeGroup.PUT("/claims/:id/response", h.ApplyResponse)

	fhirRead := fhirGroup.Group("", auth.RequireRole(auth.RoleClaims, auth.RoleReviewer))
	fhirRead.GET("/ClaimResponse/:id", h.GetResponseFHIR)

	fhirWrite := fhirGroup.Group("", auth.RequireRole(auth.RoleClaims))
	fhirWrite.PUT("/ClaimResponse/:id", h.ApplyResponseFHIR)
}

func (h *Handler) ListClaims(c echo.Context) error {
	var status int
	if raw := c.QueryParam("status"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		status = parsed
	}

	p := pagination.FromContext(c)
	claims, total, err := h.svc.List(c.Request().Context(), status, p.Limit, p.Offset)
	if err != nil {
		if errors.Is(err, ErrUnmappedCategory) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(claims, total, p.Limit, p.Offset))
}

func (h *Handler) GetResponse(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doc, err := h.svc.Response(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "claim not found")
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) ApplyResponse(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var doc fhir.ClaimResponse
	if err := c.Bind(&doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if doc.ResourceType != "ClaimResponse" {
		return echo.NewHTTPError(http.StatusBadRequest, "resourceType must be ClaimResponse")
	}
	doc.ID = id.String()
	updated, err := h.svc.Apply(c.Request().Context(), &doc)
	if err != nil {
		return echo.NewHTTPError(applyErrorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) GetResponseFHIR(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("ClaimResponse", c.Param("id")))
	}
	doc, err := h.svc.Response(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("ClaimResponse", c.Param("id")))
		}
		return c.JSON(http.StatusUnprocessableEntity, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) ApplyResponseFHIR(c echo.Context) error {
	var doc fhir.ClaimResponse
	if err := c.Bind(&doc); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if doc.ResourceType != "ClaimResponse" {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("resourceType must be ClaimResponse"))
	}
	if doc.ID == "" {
		doc.ID = c.Param("id")
	}
	updated, err := h.svc.Apply(c.Request().Context(), &doc)
	if err != nil {
		status := applyErrorStatus(err)
		if status == http.StatusNotFound {
			return c.JSON(status, fhir.NotFoundOutcome("ClaimResponse", c.Param("id")))
		}
		return c.JSON(status, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, updated)
}

// applyErrorStatus maps conversion errors to HTTP statuses: a broken claim
// link is a 404, everything the document itself got wrong is a 422.
func applyErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingClaimLink), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnmappedCategory),
		errors.Is(err, ErrUnresolvableReference),
		errors.Is(err, ErrMissingRequiredExtension):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
