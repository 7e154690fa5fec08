package handlers

import (
	"context"
	"net/http"

	"github.com/projpool/projpool/internal/handlers/middleware"
	"github.com/projpool/projpool/internal/handlers/render"
	"github.com/projpool/projpool/internal/logger"
	"github.com/projpool/projpool/internal/models"
)

type labelRepo interface {
	Create(ctx context.Context, label *models.Label) error
	List(ctx context.Context) ([]models.Label, error)

	// Has to return apperrors.ErrLabelNotFound if label not found
	Get(ctx context.Context, id int64) (models.Label, error)
	Delete(ctx context.Context, id int64) error
}

type labelRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// Labels are shared by all users. Attaching label to project needs project ownership.
func LabelBlueprint(labels labelRepo, projects projectRepo, l logger.Logger) Blueprint {
	return Blueprint{
		Name:        "label",
		Description: "Labels to tag projects with",
		Routes: []Route{
			{
				Method: http.MethodGet, Path: "/label", Summary: "List labels", Auth: middleware.Access,
				Response: []models.Label{},
				Handler:  handleListLabels(labels, l),
			},
			{
				Method: http.MethodPost, Path: "/label", Summary: "Create label", Auth: middleware.Access,
				Request: labelRequest{}, Response: models.Label{}, Status: http.StatusCreated,
				Handler: handleCreateLabel(labels, l),
			},
			{
				Method: http.MethodGet, Path: "/label/{id}", Summary: "Get label", Auth: middleware.Access,
				Response: models.Label{},
				Handler:  handleGetLabel(labels, l),
			},
			{
				Method: http.MethodDelete, Path: "/label/{id}", Summary: "Delete label", Auth: middleware.Admin,
				Status:  http.StatusNoContent,
				Handler: handleDeleteLabel(labels, l),
			},
			{
				Method: http.MethodPost, Path: "/project/{id}/label/{label_id}", Summary: "Attach label to project", Auth: middleware.Access,
				Response: models.Project{},
				Handler:  handleAddProjectLabel(projects, l),
			},
		},
	}
}

func handleListLabels(labels labelRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		list, err := labels.List(r.Context())
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, list)
	})
}

func handleCreateLabel(labels labelRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[labelRequest](w, r)
		if err != nil {
			return
		}

		label := models.Label{Name: data.Name, Color: data.Color}
		if err := labels.Create(r.Context(), &label); err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSONStatus(w, label, http.StatusCreated)
	})
}

func handleGetLabel(labels labelRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		label, err := labels.Get(r.Context(), id)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, label)
	})
}

func handleDeleteLabel(labels labelRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		if err := labels.Delete(r.Context(), id); err != nil {
			renderError(w, r, l, err)
			return
		}

		render.NoContent(w)
	})
}

func handleAddProjectLabel(projects projectRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		projectID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		labelID, ok := pathID(w, r, "label_id")
		if !ok {
			return
		}

		if _, err := ownedProject(r.Context(), projects, r, userID, projectID); err != nil {
			renderError(w, r, l, err)
			return
		}

		project, err := projects.AddLabel(r.Context(), projectID, labelID)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, project)
	})
}
