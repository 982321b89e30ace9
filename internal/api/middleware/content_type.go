package middleware

import (
	"net/http"
	"strings"

	"github.com/NoamTeshuva/pedestrian-web/internal/api/models"
)

// ContentTypeJSON defaults the response Content-Type to application/json.
// Handlers that set their own type first, such as problem+json errors,
// keep it.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects POST, PUT, and PATCH requests whose declared body
// type is not JSON. Requests without a Content-Type header pass through;
// the handler's body decoding deals with those.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				p := models.NewProblem(models.ProblemTypeValidation, "Unsupported media type",
					http.StatusUnsupportedMediaType, GetRequestID(r.Context()))
				p.Detail = "Content-Type must be application/json."
				p.Instance = r.URL.Path
				p.Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
