package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/api/middleware"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/service"
)

// NewRouter creates the application router with every route mounted under
// /api.
func NewRouter(taskService service.TaskService, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(logger))

	tasks := NewTaskHandler(taskService, logger)
	rankings := NewRankingHandler(taskService, logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", rankings.Health)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", tasks.ListTasks)
			r.Post("/", tasks.CreateTask)
			r.Get("/{id}", tasks.GetTask)
			r.Put("/{id}", tasks.UpdateTask)
			r.Delete("/{id}", tasks.DeleteTask)
			r.Post("/{id}/complete", tasks.CompleteTask)
		})

		r.Route("/ranking", func(r chi.Router) {
			r.Get("/", rankings.GetRanking)
			r.Get("/next", rankings.GetNext)
			r.Post("/reorder", rankings.LogReorder)
			r.Get("/{id}/explain", rankings.Explain)
		})

		r.Get("/weights", rankings.GetWeights)
		r.Put("/weights", rankings.UpdateWeights)
		r.Get("/learner", rankings.GetLearner)
		r.Patch("/learner", rankings.UpdateLearner)
		r.Get("/rebalances", rankings.ListRebalances)
	})

	return r
}
