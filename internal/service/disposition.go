// disposition.go — выбор inline/attachment по MIME-типу и безопасная
// сборка заголовка Content-Disposition.
package service

import (
	"mime"
	"strings"
	"unicode"
)

// inlineTypes — типы вне семейств text/image/audio/video/font,
// которые браузер показывает сам.
var inlineTypes = map[string]bool{
	"application/pdf":          true,
	"application/json":         true,
	"application/xml":          true,
	"application/javascript":   true,
	"application/x-javascript": true,
	"application/ecmascript":   true,
	"image/svg+xml":            true,
}

// IsInline сообщает, отдавать ли содержимое inline.
func IsInline(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	if inlineTypes[mediaType] {
		return true
	}

	major, sub, _ := strings.Cut(mediaType, "/")
	switch major {
	case "text", "image", "audio", "video", "font":
		return true
	case "application":
		return strings.HasSuffix(sub, "+json") || strings.HasSuffix(sub, "+xml")
	}
	return false
}

// ContentDisposition собирает значение заголовка: тип (inline/attachment),
// ASCII-вариант имени в filename и, для не-ASCII имён, filename* (RFC 5987).
func ContentDisposition(contentType, filename string) string {
	dispType := "attachment"
	if IsInline(contentType) {
		dispType = "inline"
	}

	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.ToValidUTF8(filename, ""))

	var b strings.Builder
	b.WriteString(dispType)
	b.WriteString(`; filename="`)
	b.WriteString(asciiFallback(clean))
	b.WriteByte('"')

	if !isASCII(clean) {
		b.WriteString("; filename*=UTF-8''")
		b.WriteString(encodeExtValue(clean))
	}
	return b.String()
}

// asciiFallback заменяет не-ASCII символы на "_" и экранирует кавычки и "\".
func asciiFallback(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r > unicode.MaxASCII:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "download"
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// encodeExtValue кодирует строку по RFC 5987: attr-char как есть, остальное %XX.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
