package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/config"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/interaction"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/restapi/middleware"
	v1callback "github.com/eurofurence/reg-payment-mia-adapter/internal/restapi/v1/callback"
	v1health "github.com/eurofurence/reg-payment-mia-adapter/internal/restapi/v1/health"
	v1orders "github.com/eurofurence/reg-payment-mia-adapter/internal/restapi/v1/orders"
)

const apiBasePath = "/api/rest/v1"

func NewServer(ctx context.Context, conf *config.ServerConfig, router http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", conf.BaseAddress, conf.Port),
		Handler:      router,
		ReadTimeout:  time.Second * time.Duration(conf.ReadTimeout),
		WriteTimeout: time.Second * time.Duration(conf.WriteTimeout),
		IdleTimeout:  time.Second * time.Duration(conf.IdleTimeout),
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}
}

func CreateRouter(i interaction.Interactor, conf *config.Application) chi.Router {
	router := chi.NewRouter()

	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestIdMiddleware())
	router.Use(middleware.LogRequestIdMiddleware())

	setupV1Routes(router, i, conf)

	return router
}

func setupV1Routes(router chi.Router, i interaction.Interactor, conf *config.Application) {
	v1health.Create(router, conf.Mia.Sandbox)

	// the bank authenticates through the payload signature, not the api token
	v1callback.Create(router, i, conf.Mia.SignatureKey)

	router.Route(apiBasePath, func(r chi.Router) {
		v1callback.Create(r, i, conf.Mia.SignatureKey)

		r.Group(func(r chi.Router) {
			r.Use(middleware.TokenHandlerMiddleware(conf.Security.Fixed.Api))
			v1orders.Create(r, i)
		})
	})
}
