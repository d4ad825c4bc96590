package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/examstack/grading-api/internal/api"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	examHandler := api.NewExamHandler(app.questions, app.dispatcher, app.logger)
	taskHandler := api.NewTaskHandler(app.dispatcher, app.logger)
	resultHandler := api.NewResultHandler(app.results, app.statsStore, app.aggregator, app.logger)
	eventsHandler := api.NewEventsHandler(app.subscriber, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/exams", examHandler.Submit)

		r.Get("/tasks/{id}", taskHandler.GetStatus)
		r.Get("/tasks/{id}/events", eventsHandler.Stream)
		r.Get("/queue/stats", taskHandler.GetQueueStats)

		r.Get("/results", resultHandler.List)
		r.Get("/results/export", resultHandler.Export)
		r.Get("/results/{id}", resultHandler.Get)
		r.Delete("/results/{id}", resultHandler.Delete)

		r.Get("/users/{id}/stats", resultHandler.UserStats)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
