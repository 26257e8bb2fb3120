package model

import "time"

// APIKey — bearer-ключ клиента (строка таблицы api_keys).
type APIKey struct {
	ID string
	// Key — секрет, передаваемый в Authorization: Bearer <key>
	Key       string
	Name      string
	CreatedAt time.Time
	LastUsed  *time.Time
	// IsActive — неактивный ключ не проходит проверку, как несуществующий
	IsActive bool
}
