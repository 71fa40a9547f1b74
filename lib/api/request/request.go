// Package request содержит хелперы для разбора входящих HTTP-запросов.
package request

import (
	"net/http"
	"strconv"
)

// HeaderUserID - заголовок, в котором шлюз аутентификации передает
// идентификатор пользователя.
const HeaderUserID = "X-User-Id"

// UserID извлекает идентификатор пользователя из заголовка запроса.
// Если заголовок отсутствует или некорректен, возвращается fallback
// (демо-пользователь из конфигурации).
func UserID(r *http.Request, fallback int64) int64 {
	raw := r.Header.Get(HeaderUserID)
	if raw == "" {
		return fallback
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return fallback
	}

	return id
}
