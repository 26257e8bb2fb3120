// Пакет model — доменные модели fileshare.
package model

import (
	"time"
)

// DefaultContentType — MIME-тип для файлов без объявленного типа.
const DefaultContentType = "application/octet-stream"

// Upload — метаданные одного объекта в хранилище (строка таблицы uploads).
type Upload struct {
	// ID — суррогатный ключ строки
	ID int64

	// FileID — ключ объекта в хранилище.
	// Для группы: "{group_id}/{relative_path}", для одиночного файла равен GroupID.
	FileID string

	// GroupID — идентификатор пакета загрузки
	GroupID string

	// OriginalName — имя файла для отображения (не доверенная строка)
	OriginalName string

	// RelativePath — путь внутри группы, nil для одиночных загрузок
	RelativePath *string

	// Size — размер в байтах, фактически записанный в хранилище
	Size int64

	ContentType string

	// APIKeyID — владелец записи
	APIKeyID string

	UploadedAt     time.Time
	LastAccessedAt *time.Time
	AccessCount    int64

	// ExpiresAt — момент истечения, nil — бессрочно
	ExpiresAt *time.Time
}

// IsExpired сообщает, что запись логически удалена: срок истёк
// к моменту now, даже если sweeper ещё не удалил её физически.
func (u *Upload) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && !now.Before(*u.ExpiresAt)
}

// DisplayName возвращает путь внутри группы, а при его отсутствии — имя файла.
func (u *Upload) DisplayName() string {
	if u.RelativePath != nil && *u.RelativePath != "" {
		return *u.RelativePath
	}
	return u.OriginalName
}

// IsGroupMember сообщает, что запись входит в группу-директорию.
func (u *Upload) IsGroupMember() bool {
	return u.FileID != u.GroupID
}

// AnyExpired сообщает, истекла ли хотя бы одна запись группы.
// Срок у всех членов группы одинаковый, поэтому это равносильно истечению группы.
func AnyExpired(members []*Upload, now time.Time) bool {
	for _, m := range members {
		if m.IsExpired(now) {
			return true
		}
	}
	return false
}

// GroupExpiry возвращает срок истечения группы (первый непустой).
func GroupExpiry(members []*Upload) *time.Time {
	for _, m := range members {
		if m.ExpiresAt != nil {
			return m.ExpiresAt
		}
	}
	return nil
}
