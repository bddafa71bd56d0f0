package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/ecocab/ecocab-orders/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware фасада кабинета заказов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/cabinet", func(r chi.Router) {
		r.Get("/orders", h.GetOrders)
		r.Post("/orders/more", h.LoadMore)

		r.Get("/balance", h.GetBalance)

		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/payment", h.GetPaymentQuote)
			r.Post("/pay", h.Pay)
			r.Post("/cancel", h.Cancel)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
