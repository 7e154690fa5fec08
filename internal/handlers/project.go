package handlers

import (
	"context"
	"net/http"

	"github.com/projpool/projpool/internal/apperrors"
	"github.com/projpool/projpool/internal/handlers/middleware"
	"github.com/projpool/projpool/internal/handlers/render"
	"github.com/projpool/projpool/internal/logger"
	"github.com/projpool/projpool/internal/models"
)

type projectRepo interface {
	Create(ctx context.Context, project *models.Project) error
	List(ctx context.Context, ownerID int64) ([]models.Project, error)

	// Has to return apperrors.ErrProjectNotFound if project not found
	Get(ctx context.Context, id int64) (models.Project, error)
	Delete(ctx context.Context, id int64) error

	// Has to return apperrors.ErrLabelNotFound if label not found
	AddLabel(ctx context.Context, projectID int64, labelID int64) (models.Project, error)
}

type projectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

func ProjectBlueprint(projects projectRepo, l logger.Logger) Blueprint {
	return Blueprint{
		Name:        "project",
		Description: "Projects of the current user",
		Routes: []Route{
			{
				Method: http.MethodGet, Path: "/project", Summary: "List projects", Auth: middleware.Access,
				Response: []models.Project{},
				Handler:  handleListProjects(projects, l),
			},
			{
				Method: http.MethodPost, Path: "/project", Summary: "Create project", Auth: middleware.Access,
				Request: projectRequest{}, Response: models.Project{}, Status: http.StatusCreated,
				Handler: handleCreateProject(projects, l),
			},
			{
				Method: http.MethodGet, Path: "/project/{id}", Summary: "Get project", Auth: middleware.Access,
				Response: models.Project{},
				Handler:  handleGetProject(projects, l),
			},
			{
				Method: http.MethodDelete, Path: "/project/{id}", Summary: "Delete project", Auth: middleware.Access,
				Status:  http.StatusNoContent,
				Handler: handleDeleteProject(projects, l),
			},
		},
	}
}

// Project visible to the request token holder.
// Projects of other users look like missing ones unless holder is admin.
func ownedProject(ctx context.Context, projects projectRepo, r *http.Request, userID int64, projectID int64) (models.Project, error) {
	project, err := projects.Get(ctx, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if project.OwnerID != userID && !isAdmin(r) {
		return models.Project{}, apperrors.ErrProjectNotFound
	}
	return project, nil
}

func handleListProjects(projects projectRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		list, err := projects.List(r.Context(), userID)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, list)
	})
}

func handleCreateProject(projects projectRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[projectRequest](w, r)
		if err != nil {
			return
		}

		project := models.Project{OwnerID: userID, Name: data.Name, Description: data.Description}
		if err := projects.Create(r.Context(), &project); err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSONStatus(w, project, http.StatusCreated)
	})
}

func handleGetProject(projects projectRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		project, err := ownedProject(r.Context(), projects, r, userID, id)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, project)
	})
}

func handleDeleteProject(projects projectRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		if _, err := ownedProject(r.Context(), projects, r, userID, id); err != nil {
			renderError(w, r, l, err)
			return
		}

		if err := projects.Delete(r.Context(), id); err != nil {
			renderError(w, r, l, err)
			return
		}

		render.NoContent(w)
	})
}
