package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultTimeout = 60 * time.Second

// RouterDeps bundles the handler groups mounted on the router. Middlewares
// run after the built-in chain, so they see the request id set by RequestID.
type RouterDeps struct {
	Orders      *OrderHandlers
	Stock       *StockHandlers
	Middlewares []func(http.Handler) http.Handler
}

// NewRouter assembles the HTTP API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(defaultTimeout),
	)
	for _, mw := range deps.Middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", health)

	if deps.Orders != nil {
		r.Route("/orders/{stream}", deps.Orders.Routes)
	}
	if deps.Stock != nil {
		r.Route("/stock", deps.Stock.Routes)
	}
	return r
}
