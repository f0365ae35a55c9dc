package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/carbocation/hmmdash/aggregate"
	"github.com/carbocation/hmmdash/index"
	"github.com/carbocation/hmmdash/table"
	"github.com/gorilla/mux"
)

var errBadParameter = errors.New("bad parameter")

// handler provides global values that must be
// safe for concurrent use from multiple goroutines
// to each handler method.
type handler struct {
	*Global

	router *mux.Router
}

func renderJSON(h *handler, w http.ResponseWriter, r *http.Request, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Println(r.URL.Path, err)
	}
}

// list splits a comma separated parameter, dropping empty entries.
func list(r *http.Request, name string) []string {
	out := make([]string, 0)
	for _, v := range strings.Split(r.FormValue(name), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}

func dimensions(r *http.Request, name string) []index.Dimension {
	out := make([]index.Dimension, 0)
	for _, v := range list(r, name) {
		out = append(out, index.ByName(v))
	}

	return out
}

// parseQuery reads measure, models, filter and seq_lens. seq_lens labels the
// positions of the metric lists in order (the first element is reported at
// the first length); it does not select lengths from the table.
func parseQuery(r *http.Request) (aggregate.Query, error) {
	q := aggregate.Query{
		Measure: table.Measure(r.FormValue("measure")),
		Models:  list(r, "models"),
	}

	filter, err := index.ParseFilter(r.FormValue("filter"))
	if err != nil {
		return q, fmt.Errorf("%w: filter: %s", errBadParameter, err)
	}
	q.Filter = filter

	for _, v := range list(r, "seq_lens") {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 {
			return q, fmt.Errorf("%w: seq_lens: %q is not a positive integer", errBadParameter, v)
		}
		q.SeqLens = append(q.SeqLens, l)
	}

	return q, nil
}
