package ordering

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pharmalink/portal/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("hospital", "mr", "supplier", "admin")

	g := api.Group("", role)
	g.GET("/catalog", h.GetCatalog)

	g.POST("/order-sessions", h.CreateSession)
	g.GET("/order-sessions/:id", h.GetSession)
	g.POST("/order-sessions/:id/items/:productId/increment", h.IncrementItem)
	g.POST("/order-sessions/:id/items/:productId/decrement", h.DecrementItem)
	g.PUT("/order-sessions/:id/items/:productId", h.SetItemQuantity)
	g.DELETE("/order-sessions/:id/items/:productId", h.RemoveItem)
	g.POST("/order-sessions/:id/reset", h.ResetSession)
	g.POST("/order-sessions/:id/validate", h.ValidateSession)
	g.POST("/order-sessions/:id/confirm", h.ConfirmSession)
	g.POST("/order-sessions/:id/cancel", h.CancelConfirm)
	g.POST("/order-sessions/:id/submit", h.SubmitSession)
	g.POST("/order-sessions/:id/acknowledge", h.AcknowledgeSession)
}

func (h *Handler) GetCatalog(c echo.Context) error {
	q := CatalogQuery{
		SupplierID: c.QueryParam("supplier"),
		LowStock:   c.QueryParam("low_stock") == "true",
	}
	products, err := h.svc.Catalog(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, products)
}

type createSessionRequest struct {
	CustomerID string `json:"customer_id"`
	SupplierID string `json:"supplier_id"`
}

type sessionResponse struct {
	ID            uuid.UUID    `json:"id"`
	CustomerID    string       `json:"customer_id"`
	SupplierID    string       `json:"supplier_id"`
	State         SessionState `json:"state"`
	Lines         []CartLine   `json:"lines"`
	TotalQuantity int          `json:"total_quantity"`
	Subtotal      float64      `json:"subtotal"`
	OrderRef      string       `json:"order_ref,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
}

func (h *Handler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.CustomerID == "" {
		req.CustomerID = auth.UserIDFromContext(c.Request().Context())
	}
	if req.CustomerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "customer_id is required")
	}
	sess := h.svc.CreateSession(req.CustomerID, req.SupplierID)
	return c.JSON(http.StatusCreated, h.sessionResponse(c, sess))
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.sessionResponse(c, sess))
}

func (h *Handler) IncrementItem(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	sess.Cart.AddOne(c.Param("productId"))
	return c.JSON(http.StatusOK, h.sessionResponse(c, sess))
}

func (h *Handler) DecrementItem(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	sess.Cart.RemoveOne(c.Param("productId"))
	return c.JSON(http.StatusOK, h.sessionResponse(c, sess))
}

type setQuantityRequest struct {
	Quantity float64 `json:"quantity"`
}

func (h *Handler) SetItemQuantity(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req setQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess.Cart.SetQuantity(c.Param("productId"), req.Quantity)
	return c.JSON(http.StatusOK, h.sessionResponse(c, sess))
}

func (h *Handler) RemoveItem(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	sess.Cart.Remove(c.Param("productId"))
	return c.JSON(http.StatusOK, h.sessionResponse(c, sess))
}

func (h *Handler) ResetSession(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	sess.Cart.Reset()
	return c.JSON(http.StatusOK, h.sessionResponse(c, sess))
}

func (h *Handler) ValidateSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	violations, err := h.svc.Validate(c.Request().Context(), id)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid":      len(violations) == 0,
		"violations": violations,
	})
}

func (h *Handler) ConfirmSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	summary, violations, err := h.svc.BeginConfirm(c.Request().Context(), id)
	if err != nil {
		return h.mapError(err)
	}
	if len(violations) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"violations": violations,
		})
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) CancelConfirm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	if err := h.svc.CancelConfirm(id); err != nil {
		return h.mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SubmitSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	ack, err := h.svc.Submit(c.Request().Context(), id)
	if err != nil {
		var subErr *SubmissionError
		if errors.As(err, &subErr) {
			return c.JSON(http.StatusBadGateway, map[string]string{
				"error": subErr.Error(),
			})
		}
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, ack)
}

func (h *Handler) AcknowledgeSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	if err := h.svc.Acknowledge(id); err != nil {
		return h.mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) session(c echo.Context) (*OrderSession, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	sess, err := h.svc.Session(id)
	if err != nil {
		return nil, h.mapError(err)
	}
	return sess, nil
}

func (h *Handler) sessionResponse(c echo.Context, sess *OrderSession) *sessionResponse {
	view, err := h.svc.SessionView(c.Request().Context(), sess)
	if err != nil {
		view = CatalogView{}
	}
	lines := sess.Cart.Lines(view)
	resp := &sessionResponse{
		ID:            sess.ID,
		CustomerID:    sess.CustomerID,
		SupplierID:    sess.SupplierID,
		State:         sess.State(),
		Lines:         lines,
		OrderRef:      sess.OrderRef(),
		FailureReason: sess.FailureReason(),
	}
	for _, line := range lines {
		resp.TotalQuantity += line.Quantity
		resp.Subtotal += line.LineTotal
	}
	return resp
}

func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order session not found")
	case errors.Is(err, ErrSubmissionInFlight):
		return echo.NewHTTPError(http.StatusConflict, "a submission is already in flight")
	case errors.Is(err, ErrNotConfirmed):
		return echo.NewHTTPError(http.StatusConflict, "order has not been confirmed")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
