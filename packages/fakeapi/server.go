package fakeapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Error codes carried in the data field of an error envelope.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeBadRequest   = "BAD_REQUEST"
)

// Envelope is the body of every response.
type Envelope struct {
	Code int `json:"code"`
	Data any `json:"data"`
}

type Handler struct {
	store  *Store
	token  string
	logger *slog.Logger
}

// NewHandler serves store. Every request must carry token verbatim in its
// Authorization header.
func NewHandler(store *Store, token string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{store: store, token: token, logger: logger}
}

// Routes mounts the customer API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1/customer", func(r chi.Router) {
		r.Use(h.authorize)
		r.Post("/", h.createCustomer)
		r.Get("/", h.listCustomers)
		r.Get("/{id}", h.getCustomer)
		r.Put("/{id}", h.updateCustomer)
		r.Patch("/{id}", h.patchCustomer)
		r.Delete("/{id}", h.deleteCustomer)
	})
}

// NewRouter returns a router with the customer API and the usual
// middleware stack.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		Error(w, http.StatusNotFound, CodeNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		Error(w, http.StatusNotFound, CodeNotFound)
	})
	h.Routes(r)
	return r
}

func (h *Handler) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" || token != h.token {
			h.logger.Debug("rejected request", "method", r.Method, "path", r.URL.Path)
			Error(w, http.StatusUnauthorized, CodeUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	customer, ok := decodeBody(w, r)
	if !ok {
		return
	}
	id := h.store.Create(customer)
	h.logger.Info("create customer", "id", id)
	JSON(w, http.StatusCreated, id)
}

func (h *Handler) listCustomers(w http.ResponseWriter, _ *http.Request) {
	h.logger.Info("list customers")
	JSON(w, http.StatusOK, h.store.List())
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	h.logger.Info("get customer", "id", id)
	customer, found := h.store.Get(id)
	if !found {
		Error(w, http.StatusNotFound, CodeNotFound)
		return
	}
	JSON(w, http.StatusOK, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	customer, ok := decodeBody(w, r)
	if !ok {
		return
	}
	h.logger.Info("update customer", "id", id)
	if !h.store.Replace(id, customer) {
		Error(w, http.StatusNotFound, CodeNotFound)
		return
	}
	JSON(w, http.StatusOK, id)
}

func (h *Handler) patchCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	patch, ok := decodeBody(w, r)
	if !ok {
		return
	}
	h.logger.Info("patch customer", "id", id)
	if !h.store.Merge(id, patch) {
		Error(w, http.StatusNotFound, CodeNotFound)
		return
	}
	JSON(w, http.StatusOK, id)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	h.logger.Info("delete customer", "id", id)
	if !h.store.Delete(id) {
		Error(w, http.StatusNotFound, CodeNotFound)
		return
	}
	JSON(w, http.StatusOK, id)
}

// customerID parses the {id} URL parameter. A non-numeric id is a route
// miss.
func customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		Error(w, http.StatusNotFound, CodeNotFound)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		Error(w, http.StatusBadRequest, CodeBadRequest)
		return nil, false
	}
	return v, true
}

// JSON writes data wrapped in a success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Code: 0, Data: data})
}

// Error writes an error envelope whose code is the HTTP status.
func Error(w http.ResponseWriter, status int, code string) {
	write(w, status, Envelope{Code: status, Data: code})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
