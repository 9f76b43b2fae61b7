package orderlog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/pharmalink/portal/internal/platform/auth"
	"github.com/pharmalink/portal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("hospital", "mr", "supplier")

	api.GET("/orders", h.ListOrders, role)
	api.GET("/orders/:id", h.GetOrder, role)
}

// ListOrders returns recorded orders, newest first. Non-admin callers only
// see their own orders.
func (h *Handler) ListOrders(c echo.Context) error {
	p := pagination.FromContext(c)

	customerID := c.QueryParam("customer")
	if !h.isAdmin(c) {
		customerID = auth.UserIDFromContext(c.Request().Context())
	}

	records, total, err := h.svc.List(c.Request().Context(), customerID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list orders")
	}
	if records == nil {
		records = []*OrderRecord{}
	}

	return c.JSON(http.StatusOK, pagination.NewResponse(records, total, p.Limit, p.Offset))
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch order")
	}
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	if !h.isAdmin(c) && rec.CustomerID != auth.UserIDFromContext(c.Request().Context()) {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) isAdmin(c echo.Context) bool {
	for _, role := range auth.RolesFromContext(c.Request().Context()) {
		if role == auth.RoleAdmin {
			return true
		}
	}
	return false
}
