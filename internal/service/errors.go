// errors.go — ошибки бизнес-логики сервисного слоя.
// HTTP-слой сопоставляет их с кодами ответа через errors.Is;
// всё остальное считается ошибкой хранилища и отдаётся как 500.
package service

import "errors"

var (
	// ErrValidation — некорректные входные данные (400).
	ErrValidation = errors.New("ошибка валидации")
	// ErrTooLarge — запрос превышает лимит размера (413).
	ErrTooLarge = errors.New("превышен максимальный размер загрузки")
	// ErrNotFound — ключ не найден или принадлежит другому владельцу (404).
	ErrNotFound = errors.New("не найдено")
	// ErrGone — срок хранения истёк (410).
	ErrGone = errors.New("срок хранения истёк")
	// ErrInvalidToken — токен не найден или ключ неактивен (403).
	ErrInvalidToken = errors.New("недействительный API-ключ")
)
