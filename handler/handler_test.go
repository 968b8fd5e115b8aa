package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kmorrow/shopstore/handler"
	"github.com/kmorrow/shopstore/store"
)

func setup() *httptest.Server {
	s := store.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.New(s, logger)
	return httptest.NewServer(h)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func decodeJSON(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func decodeJSONArray(t *testing.T, r io.Reader) []any {
	t.Helper()
	var v []any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(mustJSON(t, body))
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestRootAndHealth(t *testing.T) {
	ts := setup()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeJSON(t, resp.Body)
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestProductCRUD(t *testing.T) {
	ts := setup()
	defer ts.Close()

	// Empty list
	resp, _ := http.Get(ts.URL + "/products")
	if items := decodeJSONArray(t, resp.Body); len(items) != 0 {
		t.Fatalf("expected 0 products, got %d", len(items))
	}

	// Create without id: one gets assigned
	resp = do(t, "POST", ts.URL+"/products", map[string]any{"title": "book", "price": 12.5})
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON(t, resp.Body)
	if id, _ := created["id"].(string); id == "" {
		t.Fatalf("expected generated id, got %v", created["id"])
	}

	// Create with explicit id
	resp = do(t, "POST", ts.URL+"/products", map[string]any{"id": "p2", "title": "pen", "price": 1.2})
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(ts.URL + "/products/p2")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := decodeJSON(t, resp.Body); got["title"] != "pen" {
		t.Fatalf("expected title=pen, got %v", got["title"])
	}

	resp, _ = http.Get(ts.URL + "/products")
	if items := decodeJSONArray(t, resp.Body); len(items) != 2 {
		t.Fatalf("expected 2 products, got %d", len(items))
	}

	// Update
	resp = do(t, "PUT", ts.URL+"/products/p2", map[string]any{"title": "pencil", "price": 0.8})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = http.Get(ts.URL + "/products/p2")
	if got := decodeJSON(t, resp.Body); got["title"] != "pencil" {
		t.Fatalf("expected title=pencil, got %v", got["title"])
	}

	// Update unknown id
	resp = do(t, "PUT", ts.URL+"/products/ghost", map[string]any{"title": "x", "price": 1.0})
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	// Delete
	resp = do(t, "DELETE", ts.URL+"/products/p2", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = http.Get(ts.URL + "/products/p2")
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp = do(t, "DELETE", ts.URL+"/products/p2", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestProductValidation(t *testing.T) {
	ts := setup()
	defer ts.Close()

	cases := []map[string]any{
		{"price": 1.0},                  // missing title
		{"title": "x"},                  // missing price
		{"title": "x", "price": -1.0},   // negative price
		{"title": "", "price": 1.0},     // empty title
		{"title": "x", "price": "free"}, // wrong type
	}
	for _, body := range cases {
		resp := do(t, "POST", ts.URL+"/products", body)
		if resp.StatusCode != 422 {
			t.Fatalf("body %v: expected 422, got %d", body, resp.StatusCode)
		}
	}

	resp := do(t, "POST", ts.URL+"/cart/items", map[string]any{})
	if resp.StatusCode != 422 {
		t.Fatalf("cart item without productId: expected 422, got %d", resp.StatusCode)
	}
}

func TestCartFlow(t *testing.T) {
	ts := setup()
	defer ts.Close()

	resp := do(t, "POST", ts.URL+"/products", map[string]any{"id": "101", "title": "book", "price": 9.99})
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	// Add by numeric productId, twice
	for i := 0; i < 2; i++ {
		resp = do(t, "POST", ts.URL+"/cart/items", map[string]any{"productId": 101})
		if resp.StatusCode != 200 {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	}
	cart := decodeJSON(t, resp.Body)
	if total, _ := cart["totalPrice"].(float64); math.Abs(total-19.98) > 1e-9 {
		t.Fatalf("expected totalPrice=19.98, got %v", cart["totalPrice"])
	}
	products, _ := cart["products"].([]any)
	if len(products) != 1 {
		t.Fatalf("expected 1 cart line, got %d", len(products))
	}
	line, _ := products[0].(map[string]any)
	if line["quantity"] != float64(2) {
		t.Fatalf("expected quantity=2, got %v", line["quantity"])
	}

	// Unknown product
	resp = do(t, "POST", ts.URL+"/cart/items", map[string]any{"productId": "ghost"})
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	// Remove drains the cart
	resp = do(t, "DELETE", ts.URL+"/cart/items/101", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = http.Get(ts.URL + "/cart")
	cart = decodeJSON(t, resp.Body)
	if total, _ := cart["totalPrice"].(float64); total != 0 {
		t.Fatalf("expected totalPrice=0, got %v", cart["totalPrice"])
	}
	if products, _ := cart["products"].([]any); len(products) != 0 {
		t.Fatalf("expected empty cart, got %v", products)
	}
}

func TestDeleteProductClearsCart(t *testing.T) {
	ts := setup()
	defer ts.Close()

	do(t, "POST", ts.URL+"/products", map[string]any{"id": "p1", "title": "book", "price": 5.0})
	do(t, "POST", ts.URL+"/cart/items", map[string]any{"productId": "p1"})

	resp := do(t, "DELETE", ts.URL+"/products/p1", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(ts.URL + "/cart")
	cart := decodeJSON(t, resp.Body)
	if products, _ := cart["products"].([]any); len(products) != 0 {
		t.Fatalf("expected cart emptied with product, got %v", products)
	}
	if total, _ := cart["totalPrice"].(float64); total != 0 {
		t.Fatalf("expected totalPrice=0, got %v", cart["totalPrice"])
	}
}

func TestRemoveCartItemWithoutCatalogEntry(t *testing.T) {
	ts := setup()
	defer ts.Close()

	// No catalog entry and no explicit price: refused.
	resp := do(t, "DELETE", ts.URL+"/cart/items/ghost", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	// Explicit price lets the caller reverse the total themselves.
	resp = do(t, "DELETE", ts.URL+"/cart/items/ghost?price=3.50", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setup()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
