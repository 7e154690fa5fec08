package handlers

import (
	"context"
	"net/http"

	"github.com/projpool/projpool/internal/handlers/middleware"
	"github.com/projpool/projpool/internal/handlers/render"
	"github.com/projpool/projpool/internal/logger"
)

type describer interface {
	// Has to return apperrors.ErrAssistNotConfigured if model is not configured
	Describe(ctx context.Context, prompt string) (string, error)
	Model() string
}

type describeRequest struct {
	Prompt string `json:"prompt" validate:"required,max=8000"`
}

type describeResponse struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

func GeminiBlueprint(assist describer, l logger.Logger) Blueprint {
	return Blueprint{
		Name:        "gemini",
		Description: "AI assist backed by Gemini on Vertex AI",
		Routes: []Route{
			{
				Method: http.MethodPost, Path: "/gemini/describe", Summary: "Prompt Gemini model", Auth: middleware.Access,
				Request: describeRequest{}, Response: describeResponse{},
				Handler: handleDescribe(assist, l),
			},
		},
	}
}

func handleDescribe(assist describer, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[describeRequest](w, r)
		if err != nil {
			return
		}

		text, err := assist.Describe(r.Context(), data.Prompt)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, describeResponse{Model: assist.Model(), Text: text})
	})
}
