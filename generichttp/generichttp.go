// Package generichttp defines interfaces for generic devices
// and an extensible type that wraps them in an HTTP interface
package generichttp

import (
	"encoding/json"
	"go/types"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi"
)

// MethodPath is a struct holding an HTTP method and a URL path
type MethodPath struct {
	Method, Path string
}

// RouteTable maps method+path pairs to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Bind binds every route in the table to a router
func (rt RouteTable) Bind(r chi.Router) {
	for mp, h := range rt {
		r.MethodFunc(mp.Method, mp.Path, h)
	}
	r.Get("/endpoints", func(w http.ResponseWriter, req *http.Request) {
		ReplyJSON(w, rt.Endpoints())
	})
}

// Endpoints lists the routes in the table as "METHOD /path", sorted
func (rt RouteTable) Endpoints() []string {
	out := make([]string, 0, len(rt))
	for mp := range rt {
		out = append(out, mp.Method+" "+mp.Path)
	}
	sort.Strings(out)
	return out
}

// SubMuxSanitize converts a URL stem such as "omc/nkt/" or "/omc/nkt/*"
// into the "/omc/nkt" form chi.Router.Mount expects.  An empty stem is "/".
func SubMuxSanitize(stem string) string {
	stem = strings.TrimSuffix(strings.TrimSpace(stem), "*")
	stem = strings.Trim(stem, "/")
	return "/" + stem
}

// HTTPer is something with a route table
type HTTPer interface {
	RT() RouteTable
}

// FloatT is a struct with a single float field
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single string field
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single bool field
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a tagged union of the scalar payloads above, T says
// which field is populated
type HumanPayload struct {
	T      types.BasicKind
	Float  float64
	Int    int
	String string
	Bool   bool
}

// EncodeAndRespond writes the populated field as JSON, e.g. {"f64": 1.5}
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var v interface{}
	switch hp.T {
	case types.Float64:
		v = FloatT{hp.Float}
	case types.Int:
		v = IntT{hp.Int}
	case types.String:
		v = StrT{hp.String}
	case types.Bool:
		v = BoolT{hp.Bool}
	default:
		http.Error(w, "unsupported payload type", http.StatusInternalServerError)
		return
	}
	ReplyJSON(w, v)
}

// ReplyJSON encodes v as the JSON body of a 200 response
func ReplyJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetFloat calls a float-getting function and returns the response
// as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// GetInt calls an int-getting function and returns the response
// as json {'int': value}
func GetInt(fcn func() (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Int, Int: i}
		hp.EncodeAndRespond(w, r)
	}
}

// SetInt parses a JSON input of {'int': value} and
// calls fcn with it
func SetInt(fcn func(int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i := IntT{}
		err := json.NewDecoder(r.Body).Decode(&i)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(i.Int)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetString calls a string-getting function and returns the response
// as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.String, String: s}
		hp.EncodeAndRespond(w, r)
	}
}

// GetBool calls a bool-getting function and returns the response
// as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Bool, Bool: b}
		hp.EncodeAndRespond(w, r)
	}
}
