package ordering

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/pharmalink/portal/internal/platform/auth"
)

func newHandlerTest(f SourceFetcher) (*Handler, *echo.Echo) {
	return NewHandler(newTestService(f, nil)), echo.New()
}

func testContext(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	ctx := context.WithValue(req.Context(), auth.UserIDKey, "user-1")
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{"hospital"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandlerGetCatalog(t *testing.T) {
	h, e := newHandlerTest(newTestFetcher())
	c, rec := testContext(e, http.MethodGet, "/api/v1/catalog?supplier=s1", "")

	if err := h.GetCatalog(c); err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var products []SellableProduct
	if err := json.Unmarshal(rec.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("expected 2 products, got %d", len(products))
	}
}

func TestHandlerCreateSession(t *testing.T) {
	h, e := newHandlerTest(newTestFetcher())
	c, rec := testContext(e, http.MethodPost, "/api/v1/order-sessions", `{"supplier_id":"s1"}`)

	if err := h.CreateSession(c); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	// The customer defaults to the authenticated actor.
	if resp["customer_id"] != "user-1" {
		t.Errorf("expected customer from auth context, got %v", resp["customer_id"])
	}
	if resp["state"] != string(StateIdle) {
		t.Errorf("expected idle state, got %v", resp["state"])
	}
}

func TestHandlerItemOperations(t *testing.T) {
	f := newTestFetcher()
	h, e := newHandlerTest(f)
	sess := h.svc.CreateSession("user-1", "s1")

	call := func(method, suffix, body string, target echo.HandlerFunc, productID string) *httptest.ResponseRecorder {
		c, rec := testContext(e, method, "/api/v1/order-sessions/"+sess.ID.String()+suffix, body)
		if productID != "" {
			c.SetParamNames("id", "productId")
			c.SetParamValues(sess.ID.String(), productID)
		} else {
			c.SetParamNames("id")
			c.SetParamValues(sess.ID.String())
		}
		if err := target(c); err != nil {
			t.Fatalf("%s %s: %v", method, suffix, err)
		}
		return rec
	}

	call(http.MethodPost, "/items/p1/increment", "", h.IncrementItem, "p1")
	call(http.MethodPost, "/items/p1/increment", "", h.IncrementItem, "p1")
	if got := sess.Cart.Quantity("p1"); got != 2 {
		t.Errorf("expected quantity 2, got %d", got)
	}

	call(http.MethodPost, "/items/p1/decrement", "", h.DecrementItem, "p1")
	if got := sess.Cart.Quantity("p1"); got != 1 {
		t.Errorf("expected quantity 1, got %d", got)
	}

	// Fractional input is floored, negative clamped to zero.
	call(http.MethodPut, "/items/p1", `{"quantity":3.7}`, h.SetItemQuantity, "p1")
	if got := sess.Cart.Quantity("p1"); got != 3 {
		t.Errorf("expected clamped quantity 3, got %d", got)
	}
	call(http.MethodPut, "/items/p1", `{"quantity":-5}`, h.SetItemQuantity, "p1")
	if got := sess.Cart.Quantity("p1"); got != 0 {
		t.Errorf("expected clamped quantity 0, got %d", got)
	}

	call(http.MethodPost, "/items/p2/increment", "", h.IncrementItem, "p2")
	call(http.MethodDelete, "/items/p2", "", h.RemoveItem, "p2")
	if sess.Cart.ActiveCount() != 0 {
		t.Errorf("expected no active lines after removal")
	}

	rec := call(http.MethodPost, "/reset", "", h.ResetSession, "")
	if rec.Code != http.StatusOK {
		t.Errorf("reset: expected 200, got %d", rec.Code)
	}
}

func TestHandlerSessionNotFound(t *testing.T) {
	h, e := newHandlerTest(newTestFetcher())
	c, _ := testContext(e, http.MethodGet, "/api/v1/order-sessions/2b1e9e7c-0000-0000-0000-000000000000", "")
	c.SetParamNames("id")
	c.SetParamValues("2b1e9e7c-0000-0000-0000-000000000000")

	err := h.GetSession(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandlerConfirmReturnsViolations(t *testing.T) {
	h, e := newHandlerTest(newTestFetcher())
	sess := h.svc.CreateSession("user-1", "s1")
	sess.Cart.SetQuantity("p1", 999)

	c, rec := testContext(e, http.MethodPost, "/api/v1/order-sessions/"+sess.ID.String()+"/confirm", "")
	c.SetParamNames("id")
	c.SetParamValues(sess.ID.String())

	if err := h.ConfirmSession(c); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp struct {
		Violations []Violation `json:"violations"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Violations) == 0 {
		t.Errorf("expected violations in body")
	}
}

func TestHandlerConfirmAndSubmit(t *testing.T) {
	f := newTestFetcher()
	h, e := newHandlerTest(f)
	sess := h.svc.CreateSession("user-1", "s1")
	sess.Cart.SetQuantity("p1", 2)

	c, rec := testContext(e, http.MethodPost, "/api/v1/order-sessions/"+sess.ID.String()+"/confirm", "")
	c.SetParamNames("id")
	c.SetParamValues(sess.ID.String())
	if err := h.ConfirmSession(c); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary OrderSummary
	json.Unmarshal(rec.Body.Bytes(), &summary)
	if summary.Subtotal != 16 {
		t.Errorf("expected subtotal 16, got %v", summary.Subtotal)
	}

	c, rec = testContext(e, http.MethodPost, "/api/v1/order-sessions/"+sess.ID.String()+"/submit", "")
	c.SetParamNames("id")
	c.SetParamValues(sess.ID.String())
	if err := h.SubmitSession(c); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var ack OrderAck
	json.Unmarshal(rec.Body.Bytes(), &ack)
	if ack.OrderRef != "ord-1" {
		t.Errorf("expected order ref, got %+v", ack)
	}
}

func TestHandlerSubmitRejectionIsBadGateway(t *testing.T) {
	f := newTestFetcher()
	f.createFn = func(ctx context.Context, req OrderRequest) (*OrderAck, error) {
		return nil, &SubmissionError{StatusCode: 400, Message: "supplier rejected the order"}
	}
	h, e := newHandlerTest(f)
	sess := h.svc.CreateSession("user-1", "s1")
	sess.Cart.SetQuantity("p1", 1)
	if _, _, err := h.svc.BeginConfirm(context.Background(), sess.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	c, rec := testContext(e, http.MethodPost, "/api/v1/order-sessions/"+sess.ID.String()+"/submit", "")
	c.SetParamNames("id")
	c.SetParamValues(sess.ID.String())
	if err := h.SubmitSession(c); err != nil {
		t.Fatalf("submit handler: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "supplier rejected the order" {
		t.Errorf("expected server reason in body, got %v", resp)
	}
}

func TestHandlerValidate(t *testing.T) {
	h, e := newHandlerTest(newTestFetcher())
	sess := h.svc.CreateSession("user-1", "")

	c, rec := testContext(e, http.MethodPost, "/api/v1/order-sessions/"+sess.ID.String()+"/validate", "")
	c.SetParamNames("id")
	c.SetParamValues(sess.ID.String())

	if err := h.ValidateSession(c); err != nil {
		t.Fatalf("validate: %v", err)
	}
	var resp struct {
		Valid      bool        `json:"valid"`
		Violations []Violation `json:"violations"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Valid {
		t.Errorf("empty cart without supplier must not validate")
	}
	if len(resp.Violations) != 2 {
		t.Errorf("expected MissingSupplier and EmptyCart, got %+v", resp.Violations)
	}
}

func TestHandlerCancelAndAcknowledge(t *testing.T) {
	h, e := newHandlerTest(newTestFetcher())
	sess := h.svc.CreateSession("user-1", "s1")
	sess.Cart.SetQuantity("p1", 1)
	if _, _, err := h.svc.BeginConfirm(context.Background(), sess.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	c, rec := testContext(e, http.MethodPost, "/api/v1/order-sessions/"+sess.ID.String()+"/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues(sess.ID.String())
	if err := h.CancelConfirm(c); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if sess.State() != StateIdle {
		t.Errorf("expected idle after cancel, got %s", sess.State())
	}
}
