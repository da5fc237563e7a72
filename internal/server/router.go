// internal/server/router.go
package server

import (
	"context"
	"net/http"
	"time"

	"exam-quiz/internal/auth"
	"exam-quiz/internal/quiz"
	"exam-quiz/pkg/middleware"
	"exam-quiz/pkg/response"

	"github.com/gorilla/mux"
)

// Pinger is a dependency the health check probes.
type Pinger func(ctx context.Context) error

type Deps struct {
	AuthService *auth.Service
	AuthHandler *auth.Handler
	QuizHandler *quiz.Handler
	WebSocket   http.HandlerFunc
	Health      map[string]Pinger
}

func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recover(), middleware.Logger())

	router.HandleFunc("/healthz", healthHandler(d.Health)).Methods(http.MethodGet)
	if d.WebSocket != nil {
		router.HandleFunc("/ws", d.WebSocket)
	}

	api := router.PathPrefix("/api").Subrouter()

	// Auth routes - no session required
	api.HandleFunc("/auth/register", d.AuthHandler.Register).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/login", d.AuthHandler.Login).Methods(http.MethodPost, http.MethodOptions)

	public := api.NewRoute().Subrouter()
	public.Use(auth.OptionalSession(d.AuthService))
	public.HandleFunc("/exams", d.QuizHandler.ListExams).Methods(http.MethodGet)
	public.HandleFunc("/exams/{examId}", d.QuizHandler.GetExam).Methods(http.MethodGet)
	public.HandleFunc("/exams/{examId}/categories", d.QuizHandler.GetExamCategories).Methods(http.MethodGet)
	public.HandleFunc("/exams/{examId}/stats", d.QuizHandler.GetExamStats).Methods(http.MethodGet)

	private := api.NewRoute().Subrouter()
	private.Use(auth.RequireSession(d.AuthService))
	private.HandleFunc("/auth/logout", d.AuthHandler.Logout).Methods(http.MethodPost)
	private.HandleFunc("/user/me", d.AuthHandler.Me).Methods(http.MethodGet)
	private.HandleFunc("/quiz/start", d.QuizHandler.StartQuiz).Methods(http.MethodPost)
	private.HandleFunc("/quiz/submit", d.QuizHandler.SubmitQuiz).Methods(http.MethodPost)
	private.HandleFunc("/quiz/results/{attemptId}", d.QuizHandler.GetResults).Methods(http.MethodGet)
	private.HandleFunc("/exam-attempts/{id}", d.QuizHandler.GetExamAttempt).Methods(http.MethodGet)
	private.HandleFunc("/exam-attempts/{id}/questions", d.QuizHandler.GetAttemptQuestions).Methods(http.MethodGet)
	private.HandleFunc("/questions/{id}", d.QuizHandler.GetQuestion).Methods(http.MethodGet)

	return router
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "ok"
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		response.WriteJSON(w, code, map[string]interface{}{"healthy": healthy, "checks": status})
	}
}
