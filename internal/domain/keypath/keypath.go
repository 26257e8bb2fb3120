// Пакет keypath — нормализация путей, присланных клиентом, в безопасные
// относительные ключи объектов.
package keypath

import (
	"strings"
	"unicode"
)

// Sanitize приводит путь к относительному POSIX-виду: обратные слэши
// считаются разделителями, сегменты ".", ".." и пустые отбрасываются,
// управляющие символы и невалидный UTF-8 удаляются. Ведущего "/" в
// результате нет. Функция не возвращает ошибок; результат может быть
// пустым, тогда вызывающий код подставляет сгенерированное имя.
func Sanitize(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\\' {
			return '/'
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.ToValidUTF8(raw, ""))

	segments := strings.Split(cleaned, "/")
	kept := segments[:0]
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		kept = append(kept, seg)
	}

	return strings.Join(kept, "/")
}

// IsNested сообщает, содержит ли очищенный путь вложенные директории.
func IsNested(sanitized string) bool {
	return strings.Contains(sanitized, "/")
}

// Leaf возвращает последний сегмент очищенного пути.
func Leaf(sanitized string) string {
	if i := strings.LastIndexByte(sanitized, '/'); i >= 0 {
		return sanitized[i+1:]
	}
	return sanitized
}
