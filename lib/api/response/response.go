// Package response предоставляет утилиты для формирования стандартных
// JSON-ответов HTTP API. Клиент мобильного приложения ожидает единый
// конверт вида {code, message, data}, где любой code != 200 трактуется
// как ошибка с человекочитаемым сообщением.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response - это базовая структура для всех JSON-ответов.
// Поле `data` добавляется конкретными обработчиками через встраивание.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CodeOK - единственное значение, которое клиент считает успехом.
const CodeOK = http.StatusOK

// OK создает и возвращает стандартный успешный ответ.
func OK() Response {
	return Response{
		Code:    CodeOK,
		Message: "success",
	}
}

// Error создает и возвращает стандартный ответ с ошибкой.
// Принимает код и сообщение, которые будут включены в ответ.
func Error(code int, msg string) Response {
	return Response{
		Code:    code,
		Message: msg,
	}
}

// ValidationError форматирует ошибки валидации от `go-playground/validator`
// в читаемый для пользователя вид.
func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "gt":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		case "len":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be exactly %s characters", err.Field(), err.Param()))
		case "oneof":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		// Сюда можно добавлять обработку других тегов валидации.
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	return Response{
		Code:    http.StatusBadRequest,
		Message: strings.Join(errMsgs, ", "),
	}
}
