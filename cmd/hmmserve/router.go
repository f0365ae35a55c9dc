package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/interpose/middleware"
	"github.com/justinas/alice"
)

func router(config *Global) http.Handler {
	router := mux.NewRouter()
	POST := router.Methods("POST").Subrouter()
	GET := router.Methods("GET", "HEAD").Subrouter()

	h := handler{Global: config, router: router}

	GET.HandleFunc("/version", h.Version).Name("version")
	GET.HandleFunc("/goroutines", h.Goroutines)
	GET.HandleFunc("/datasets", h.Datasets).Name("datasets")
	GET.HandleFunc("/options", h.Options).Name("options")
	GET.HandleFunc("/index", h.Index).Name("index")
	GET.HandleFunc("/aggregate", h.Aggregate).Name("aggregate")
	GET.HandleFunc("/compare", h.Compare).Name("compare")
	GET.HandleFunc("/summary", h.Summary).Name("summary")
	GET.HandleFunc("/chart.{format:(?:png|svg)}", h.Chart).Name("chart")

	POST.HandleFunc("/reload", h.Reload)

	router.NotFoundHandler = http.HandlerFunc(h.NotFound)

	standard := alice.New(
		// Log all requests to STDOUT
		middleware.GorillaLog(),
	)

	return standard.Then(router)
}
