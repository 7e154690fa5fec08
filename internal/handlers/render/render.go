// Package render writes JSON responses and the error envelopes of the API.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	ValidationErrorType = "validation_failed"
	DecodingErrorType   = "decoding_failed"
	ServiceErrorType    = "service_error"
)

// Largest accepted request body
const MaxBodyBytes = 1 << 20

var validate = validator.New()

func init() {
	configureValidator(validate)
}

type Struct any

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	JSONStatus(w, data, http.StatusOK)
}

// JSONStatus renders data with status code, e.g. 201 on create or 401 on rejected token
func JSONStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// NoContent answers 204 without body
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func ServiceError(w http.ResponseWriter, message string, code int) {
	JSONStatus(w, ErrorResponse{Error: ServiceErrorType, Message: message}, code)
}

// DecodeError answers 400 on malformed body, 413 on body over MaxBodyBytes
func DecodeError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	var (
		typeErr *json.UnmarshalTypeError
		sizeErr *http.MaxBytesError
		message string
	)

	switch {
	case errors.As(err, &typeErr):
		message = fmt.Sprintf("Invalid data type for field '%s'", typeErr.Field)
	case errors.As(err, &sizeErr):
		message = fmt.Sprintf("Request body is too large (maximum %d bytes)", sizeErr.Limit)
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, io.EOF):
		message = "Request body is empty"
	default:
		message = "Failed to parse JSON: " + err.Error()
	}

	JSONStatus(w, ErrorResponse{Error: DecodingErrorType, Message: message}, code)
}

func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = fieldMessage(fe)
	}

	JSONStatus(w, ErrorResponse{
		Error:   ValidationErrorType,
		Message: "Request validation failed",
		Fields:  fields,
	}, http.StatusBadRequest)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Value is too short (minimum %s)", fe.Param())
	case "max":
		return fmt.Sprintf("Value is too long (maximum %s)", fe.Param())
	case "hexcolor":
		return "Invalid hex color, e.g. #1f6feb"
	case "objectname":
		return "Invalid storage object name"
	default:
		return "Invalid value"
	}
}

// BindAndValidate decodes JSON body into T and validates its struct tags.
// On failure the error response is already written when it returns.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&value); err != nil {
		DecodeError(w, err)
		return value, err
	}

	return value, check(w, value)
}

// BindOptional is BindAndValidate for endpoints whose body may be omitted.
// Empty body gives zero T and no error.
func BindOptional[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&value)
	switch {
	case errors.Is(err, io.EOF):
		return value, nil
	case err != nil:
		DecodeError(w, err)
		return value, err
	}

	return value, check(w, value)
}

func check(w http.ResponseWriter, value any) error {
	err := validate.Struct(value)

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		ValidationErrors(w, errs)
		return err
	}
	if err != nil {
		ServiceError(w, "Request can't be validated", http.StatusInternalServerError)
	}
	return err
}
