package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/projpool/projpool/internal/handlers/middleware"
	"github.com/projpool/projpool/internal/handlers/render"
	"github.com/projpool/projpool/internal/logger"
	"github.com/projpool/projpool/internal/scheduler"
)

type jobScheduler interface {
	Running() bool
	Jobs() []scheduler.JobInfo

	// Has to return apperrors.ErrJobNotFound if job not registered
	Job(id string) (scheduler.JobInfo, error)
	RunNow(ctx context.Context, id string) error
}

type schedulerInfoResponse struct {
	Running bool `json:"running"`
	Jobs    int  `json:"jobs"`
}

// Admin only view of background jobs
func SchedulerBlueprint(s jobScheduler, l logger.Logger) Blueprint {
	return Blueprint{
		Name:        "scheduler",
		Description: "Background jobs",
		Routes: []Route{
			{
				Method: http.MethodGet, Path: "/scheduler", Summary: "Scheduler state", Auth: middleware.Admin,
				Response: schedulerInfoResponse{},
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					render.JSON(w, schedulerInfoResponse{Running: s.Running(), Jobs: len(s.Jobs())})
				}),
			},
			{
				Method: http.MethodGet, Path: "/scheduler/jobs", Summary: "List jobs", Auth: middleware.Admin,
				Response: []scheduler.JobInfo{},
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					render.JSON(w, s.Jobs())
				}),
			},
			{
				Method: http.MethodGet, Path: "/scheduler/jobs/{id}", Summary: "Get job", Auth: middleware.Admin,
				Response: scheduler.JobInfo{},
				Handler:  handleGetJob(s, l),
			},
			{
				Method: http.MethodPost, Path: "/scheduler/jobs/{id}/run", Summary: "Run job now", Auth: middleware.Admin,
				Response: scheduler.JobInfo{},
				Handler:  handleRunJob(s, l),
			},
		},
	}
}

func handleGetJob(s jobScheduler, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		job, err := s.Job(mux.Vars(r)["id"])
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, job)
	})
}

func handleRunJob(s jobScheduler, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := s.RunNow(r.Context(), id); err != nil {
			renderError(w, r, l, err)
			return
		}

		job, err := s.Job(id)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, job)
	})
}
