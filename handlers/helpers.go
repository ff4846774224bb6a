package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aaroha-fest/sargam-portal/services"
)

// Every response uses the same envelope:
// {success, message?, data?, error?|errors?}.
type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // programmer error: dst is not a pointer
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func successResponse(w http.ResponseWriter, status int, message string, data interface{}) {
	env := jsonResponse{"success": true}
	if message != "" {
		env["message"] = message
	}
	if data != nil {
		env["data"] = data
	}
	if err := writeJSON(w, status, env); err != nil {
		slog.Error("failed to write JSON response", slog.Any("error", err))
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	env := jsonResponse{"success": false, "message": message}
	if err := writeJSON(w, status, env); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	errorResponse(w, http.StatusInternalServerError, "Internal server error")
}

func badRequestResponse(w http.ResponseWriter, err error) {
	errorResponse(w, http.StatusBadRequest, err.Error())
}

func failedValidationResponse(w http.ResponseWriter, errs services.ValidationErrors) {
	env := jsonResponse{
		"success": false,
		"message": "Validation failed",
		"errors":  errs,
	}
	if err := writeJSON(w, http.StatusBadRequest, env); err != nil {
		slog.Error("failed to write validation response", slog.Any("error", err))
	}
}

func notFoundResponse(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusNotFound, message)
}

// mapServiceErrorToHTTP translates service-layer errors into the
// response taxonomy. Anything unrecognized is a 500.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs services.ValidationErrors

	switch {
	case errors.As(err, &validationErrs):
		failedValidationResponse(w, validationErrs)

	case errors.Is(err, services.ErrRegistrationNotFound),
		errors.Is(err, services.ErrUserNotFound):
		notFoundResponse(w, err.Error())

	case errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrRegistrationModified),
		errors.Is(err, services.ErrAuthEmailTaken):
		errorResponse(w, http.StatusConflict, err.Error())

	case errors.Is(err, services.ErrRegistrationRejected),
		errors.Is(err, services.ErrInvalidPaymentStatus),
		errors.Is(err, services.ErrInvalidResetToken),
		errors.Is(err, services.ErrUnsupportedFileType):
		errorResponse(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, services.ErrAuthInvalidCredentials),
		errors.Is(err, services.ErrInvalidRefreshToken),
		errors.Is(err, services.ErrInvalidGoogleToken):
		errorResponse(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrAdminRequired),
		errors.Is(err, services.ErrInvalidAdminSecret):
		errorResponse(w, http.StatusForbidden, err.Error())

	case errors.Is(err, services.ErrUploaderUnavailable),
		errors.Is(err, services.ErrGoogleNotConfigured),
		errors.Is(err, services.ErrAdminSecretUnset):
		errorResponse(w, http.StatusServiceUnavailable, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}
