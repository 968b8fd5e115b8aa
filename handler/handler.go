// Package handler provides the HTTP API over the record store.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmorrow/shopstore/metrics"
	"github.com/kmorrow/shopstore/store"
	"github.com/kmorrow/shopstore/validate"
)

// Record set names used by the shop.
const (
	productsSet = "products"
	cartSet     = "cart"
)

// Handler holds the server dependencies and registers routes.
type Handler struct {
	store  store.Store
	log    *slog.Logger
	router chi.Router
}

// New creates a Handler and wires up all routes.
func New(s store.Store, log *slog.Logger) *Handler {
	h := &Handler{store: s, log: log, router: chi.NewRouter()}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.Use(h.recoverer, h.observe)

	h.router.Get("/", h.root)
	h.router.Get("/health", h.health)
	h.router.Handle("/metrics", promhttp.Handler())

	h.router.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})

	h.router.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Post("/items", h.addCartItem)
		r.Delete("/items/{id}", h.removeCartItem)
	})
}

// ---------- middleware ----------

// recoverer catches panics, logs the stack trace, and returns a 500.
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.log.Error("panic recovered in HTTP handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// observe logs each request and records the Prometheus request metrics.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(wrapped.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(duration.Seconds())
		h.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", duration.String(),
			"ip", r.RemoteAddr,
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "shopstore",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- products ----------

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	rs, err := h.store.Load(productsSet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	records := rs.Records
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rs, err := h.store.Load(productsSet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rec := rs.Find(id)
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no product %q", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var rec store.Record
	if err := readJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Against(validate.Product, rec); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation failed: "+err.Error())
		return
	}
	if store.RecordID(rec) == "" {
		rec["id"] = uuid.NewString()
	}
	if err := h.store.Put(productsSet, rec); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var rec store.Record
	if err := readJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Against(validate.Product, rec); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation failed: "+err.Error())
		return
	}
	rec["id"] = id
	rs, err := h.store.Load(productsSet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rs.Find(id) == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no product %q", id))
		return
	}
	if err := h.store.Put(productsSet, rec); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rs, err := h.store.Load(productsSet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rec := rs.Find(id)
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no product %q", id))
		return
	}
	if _, err := h.store.Delete(productsSet, id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// A deleted product also leaves the cart; its price reverses the total.
	if err := h.store.Remove(cartSet, id, priceOf(rec)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// ---------- cart ----------

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	rs, err := h.store.Load(cartSet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	records := rs.Records
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products":   records,
		"totalPrice": rs.Total,
	})
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Against(validate.CartItem, body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation failed: "+err.Error())
		return
	}
	id := store.FormatID(body["productId"])
	products, err := h.store.Load(productsSet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	product := products.Find(id)
	if product == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no product %q", id))
		return
	}
	item := store.Record{"id": id, "price": priceOf(product)}
	if err := h.store.Append(cartSet, item); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rs, err := h.store.Load(cartSet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products":   rs.Records,
		"totalPrice": rs.Total,
	})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// The cart record does not carry its unit price, so the reversal amount
	// comes from the catalog, or from an explicit ?price= when the product
	// is already gone.
	price, havePrice := float64(0), false
	if raw := r.URL.Query().Get("price"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid price: "+raw)
			return
		}
		price, havePrice = p, true
	}
	if !havePrice {
		products, err := h.store.Load(productsSet)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		product := products.Find(id)
		if product == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no product %q; pass ?price= to remove anyway", id))
			return
		}
		price = priceOf(product)
	}
	if err := h.store.Remove(cartSet, id, price); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "id": id})
}

func priceOf(rec store.Record) float64 {
	if p, ok := rec["price"].(float64); ok {
		return p
	}
	return 0
}
