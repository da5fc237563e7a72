package middleware

import (
	"errors"
	"log"
	"net/http"

	"exam-quiz/pkg/response"
)

// Recover turns a panic in a handler into a 500 response. onError, when
// given, replaces the default log line.
func Recover(onError ...func(error, *http.Request)) func(http.Handler) http.Handler {
	handleError := func(err error, r *http.Request) {
		log.Printf("Recovered from panic in %s %s: %v", r.Method, r.URL.Path, err)
	}
	if len(onError) > 0 && onError[0] != nil {
		handleError = onError[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					var err error
					switch x := rec.(type) {
					case error:
						err = x
					case string:
						err = errors.New(x)
					default:
						err = errors.New("unknown panic")
					}
					handleError(err, r)
					response.WriteError(w, http.StatusInternalServerError, response.CodeInternal, "An internal error occurred", "")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
