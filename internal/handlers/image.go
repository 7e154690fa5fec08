package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/projpool/projpool/internal/handlers/middleware"
	"github.com/projpool/projpool/internal/handlers/render"
	"github.com/projpool/projpool/internal/logger"
	"github.com/projpool/projpool/internal/models"
)

const storageHost = "storage.googleapis.com"

type imageRepo interface {
	// Has to return apperrors.ErrProjectNotFound if project not found
	Create(ctx context.Context, image *models.Image) error

	// Has to return apperrors.ErrImageNotFound if image not found
	Get(ctx context.Context, id int64) (models.Image, error)
	ListByProject(ctx context.Context, projectID int64) ([]models.Image, error)
	Delete(ctx context.Context, id int64) error
}

type imageRequest struct {
	ProjectID   int64  `json:"project_id" validate:"required,gt=0"`
	ObjectName  string `json:"object_name" validate:"required,objectname"`
	ContentType string `json:"content_type" validate:"omitempty,max=100"`
}

// Public URL of object in the bucket
func objectURL(bucket string, objectName string) string {
	u := url.URL{Scheme: "https", Host: storageHost, Path: "/" + bucket + "/" + objectName}
	return u.String()
}

// Images are objects uploaded to the bucket by clients. Only object records are kept here.
func ImageBlueprint(images imageRepo, projects projectRepo, bucket string, l logger.Logger) Blueprint {
	return Blueprint{
		Name:        "image",
		Description: "Project images stored in Cloud Storage bucket",
		Routes: []Route{
			{
				Method: http.MethodPost, Path: "/image", Summary: "Register uploaded image", Auth: middleware.Access,
				Request: imageRequest{}, Response: models.Image{}, Status: http.StatusCreated,
				Handler: handleCreateImage(images, projects, bucket, l),
			},
			{
				Method: http.MethodGet, Path: "/image/{id}", Summary: "Get image", Auth: middleware.Access,
				Response: models.Image{},
				Handler:  handleGetImage(images, projects, l),
			},
			{
				Method: http.MethodGet, Path: "/project/{id}/image", Summary: "List project images", Auth: middleware.Access,
				Response: []models.Image{},
				Handler:  handleListProjectImages(images, projects, l),
			},
			{
				Method: http.MethodDelete, Path: "/image/{id}", Summary: "Delete image", Auth: middleware.Access,
				Status:  http.StatusNoContent,
				Handler: handleDeleteImage(images, projects, l),
			},
		},
	}
}

func handleCreateImage(images imageRepo, projects projectRepo, bucket string, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bucket == "" {
			render.ServiceError(w, "Image storage is not configured", http.StatusServiceUnavailable)
			return
		}

		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[imageRequest](w, r)
		if err != nil {
			return
		}

		if _, err := ownedProject(r.Context(), projects, r, userID, data.ProjectID); err != nil {
			renderError(w, r, l, err)
			return
		}

		image := models.Image{
			ProjectID:   data.ProjectID,
			ObjectName:  data.ObjectName,
			URL:         objectURL(bucket, data.ObjectName),
			ContentType: data.ContentType,
		}
		if err := images.Create(r.Context(), &image); err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSONStatus(w, image, http.StatusCreated)
	})
}

// Image which project is visible to the token holder
func ownedImage(w http.ResponseWriter, r *http.Request, images imageRepo, projects projectRepo, l logger.Logger) (models.Image, bool) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return models.Image{}, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return models.Image{}, false
	}

	image, err := images.Get(r.Context(), id)
	if err != nil {
		renderError(w, r, l, err)
		return models.Image{}, false
	}

	if _, err := ownedProject(r.Context(), projects, r, userID, image.ProjectID); err != nil {
		renderError(w, r, l, err)
		return models.Image{}, false
	}

	return image, true
}

func handleGetImage(images imageRepo, projects projectRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		image, ok := ownedImage(w, r, images, projects, l)
		if !ok {
			return
		}

		render.JSON(w, image)
	})
}

func handleListProjectImages(images imageRepo, projects projectRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		projectID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		if _, err := ownedProject(r.Context(), projects, r, userID, projectID); err != nil {
			renderError(w, r, l, err)
			return
		}

		list, err := images.ListByProject(r.Context(), projectID)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, list)
	})
}

func handleDeleteImage(images imageRepo, projects projectRepo, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		image, ok := ownedImage(w, r, images, projects, l)
		if !ok {
			return
		}

		if err := images.Delete(r.Context(), image.ID); err != nil {
			renderError(w, r, l, err)
			return
		}

		render.NoContent(w)
	})
}
