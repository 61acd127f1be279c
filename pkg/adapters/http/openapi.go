package http

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/aretw0/turing/api"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// loadSpec parses and validates the embedded OpenAPI document.
var loadSpec = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(api.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
})

// GetSpec handles GET /openapi.yaml.
func (s *Server) GetSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(api.Spec)
}

// validateRequests checks path and query parameters against the document
// before a handler runs. Bodies are decoded by the handlers themselves.
// Requests the document does not describe pass through untouched.
func (s *Server) validateRequests(next http.Handler) http.Handler {
	doc, err := loadSpec()
	var router routers.Router
	if err == nil {
		router, err = legacy.NewRouter(doc)
	}
	if err != nil {
		s.logger.Error("Request validation disabled", "err", err)
		return next
	}

	opts := &openapi3filter.Options{ExcludeRequestBody: true}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, params, err := router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		in := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options:    opts,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), in); err != nil {
			s.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// pathInt binds an integer path parameter.
func pathInt(r *http.Request, name string) (int, error) {
	var v int
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %w", errBadRequest, name, err)
	}
	return v, nil
}

// ViewParams are the query parameters of GET /machines/{id}/view.
type ViewParams struct {
	From  *int
	Count *int
}

// FormatParams carry the optional ?format= of snapshot endpoints.
type FormatParams struct {
	Format *string
}

func bindViewParams(r *http.Request) (ViewParams, error) {
	var p ViewParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "from", q, &p.From); err != nil {
		return p, fmt.Errorf("%w: invalid from: %w", errBadRequest, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "count", q, &p.Count); err != nil {
		return p, fmt.Errorf("%w: invalid count: %w", errBadRequest, err)
	}
	return p, nil
}

func bindFormatParams(r *http.Request) (FormatParams, error) {
	var p FormatParams
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &p.Format); err != nil {
		return p, fmt.Errorf("%w: invalid format: %w", errBadRequest, err)
	}
	return p, nil
}
