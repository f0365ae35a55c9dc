package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carbocation/hmmdash/aggregate"
	"github.com/carbocation/hmmdash/pipeline"
	"github.com/carbocation/hmmdash/render"
	"github.com/carbocation/hmmdash/table"
)

func JSONError(h *handler, w http.ResponseWriter, r *http.Request, err error, code ...int) {
	w.Header().Set("Content-Type", "application/json")
	unifiedError(h, w, r, err, code...)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(struct {
		Success bool
		Message string
	}{
		false,
		err.Error(),
	})
}

func unifiedError(h *handler, w http.ResponseWriter, r *http.Request, err error, code ...int) {
	usedCode := statusOf(err)
	if len(code) > 0 {
		usedCode = code[0]
	}
	w.WriteHeader(usedCode)
	h.log.Println(r.Host, r.URL.Path, ":", usedCode, err)
}

// statusOf maps the package sentinel errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrUnknownDataset),
		errors.Is(err, render.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, table.ErrUnknownMetric),
		errors.Is(err, aggregate.ErrNoMeasure),
		errors.Is(err, errBadParameter):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
