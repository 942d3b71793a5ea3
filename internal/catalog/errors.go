package catalog

import (
	"encoding/json"
	"errors"
)

// Ошибки клиента каталога.
var (
	// ErrInvalidRequest — запрос не может быть отправлен (например, нет ID записи).
	ErrInvalidRequest = errors.New("invalid catalog request")

	// ErrUnhealthy — проверка здоровья каталога не прошла.
	ErrUnhealthy = errors.New("catalog is not healthy")
)

// unknownErrorMessage — сообщение, если API не вернул errors[0].message.
const unknownErrorMessage = "Unknown catalog API error"

// APIError — структурированная ошибка API каталога.
//
// Error() возвращает errors[0].message — именно этот текст
// попадает в отчёт каталогизатору.
type APIError struct {
	StatusCode int          `json:"-"`
	Errors     []APIMessage `json:"errors"`
}

// APIMessage — элемент списка ошибок API.
type APIMessage struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 || e.Errors[0].Message == "" {
		return unknownErrorMessage
	}
	return e.Errors[0].Message
}

// parseAPIError разбирает тело ответа с ошибкой.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr.Errors = nil
	}
	return apiErr
}
