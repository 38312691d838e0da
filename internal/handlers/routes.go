package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Mount регистрирует маршруты задач и таймера. Идентификация пользователя
// должна стоять выше по цепочке middleware.
func Mount(r chi.Router, tasks *TaskHandler, timers *TimerHandler) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", tasks.ListTasks) // GET /tasks
		r.Post("/", tasks.PostTask) // POST /tasks

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", tasks.GetTaskByID) // GET /tasks/{id}

			r.Post("/assign", tasks.AssignTask) // POST /tasks/{id}/assign
			r.Post("/accept", tasks.AcceptTask) // POST /tasks/{id}/accept
			r.Post("/reject", tasks.RejectTask) // POST /tasks/{id}/reject

			r.Post("/start", timers.StartTimer)      // POST /tasks/{id}/start
			r.Post("/pause", timers.PauseTimer)      // POST /tasks/{id}/pause
			r.Post("/resume", timers.ResumeTimer)    // POST /tasks/{id}/resume
			r.Post("/stop", timers.StopTimer)        // POST /tasks/{id}/stop
			r.Post("/complete", timers.CompleteTask) // POST /tasks/{id}/complete
			r.Get("/logs", timers.GetTimeLogs)       // GET /tasks/{id}/logs
		})
	})
}
