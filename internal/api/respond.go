package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"flowershop/internal/database"
	"flowershop/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type errorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

func writeValidationError(w http.ResponseWriter, err error) {
	res := errorResponse{Error: "Проверьте правильность заполнения формы", Fields: make(map[string]string)}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			res.Fields[fe.Field()] = fe.Tag()
		}
	}
	writeJSON(w, http.StatusBadRequest, res)
}

// writeServiceError maps domain errors to HTTP statuses and user-facing messages.
func writeServiceError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Request failed")
	}
	res := errorResponse{Error: message}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		res.Fields = map[string]string{verr.Field: verr.Message}
	}
	writeJSON(w, status, res)
}

func classify(err error) (int, string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, service.ErrInvalidSelection):
		return http.StatusBadRequest, "Выберите время доставки"
	case errors.Is(err, service.ErrSlotUnavailable):
		return http.StatusConflict, "Выбранное время доставки уже недоступно"
	case errors.Is(err, service.ErrProductInactive):
		return http.StatusConflict, "Этот букет сейчас недоступен для заказа"
	case errors.Is(err, service.ErrCourierRequired):
		return http.StatusBadRequest, "Для статуса 'В доставке' нужно назначить доставщика"
	case errors.Is(err, service.ErrTerminalStatus):
		return http.StatusConflict, "Заказ уже закрыт"
	case errors.Is(err, database.ErrExpressSlotExists):
		return http.StatusConflict, "Срочный слот доставки уже существует"
	case errors.Is(err, database.ErrPhoneTaken):
		return http.StatusConflict, "Пользователь с таким телефоном уже существует"
	case errors.Is(err, database.ErrExternalIDTaken):
		return http.StatusConflict, "Пользователь с таким идентификатором уже существует"
	case errors.Is(err, database.ErrDuplicateName):
		return http.StatusConflict, "Запись с таким названием уже существует"
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "Сессия оформления заказа не найдена, заполните форму заново"
	case service.IsNotFound(err):
		return http.StatusNotFound, "Не найдено"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
