package service

import (
	"strings"
	"testing"
)

func TestIsInline(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/plain; charset=utf-8", true},
		{"text/html", true},
		{"text/css", true},
		{"image/png", true},
		{"image/svg+xml", true},
		{"audio/mpeg", true},
		{"video/mp4", true},
		{"font/woff2", true},
		{"application/pdf", true},
		{"application/json", true},
		{"application/ld+json", true},
		{"application/atom+xml", true},
		{"application/javascript", true},
		{"application/octet-stream", false},
		{"application/zip", false},
		{"application/x-msdownload", false},
		{"", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := IsInline(tt.contentType); got != tt.want {
			t.Errorf("IsInline(%q): хотели %v, получили %v", tt.contentType, tt.want, got)
		}
	}
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		filename    string
		want        string
	}{
		{
			name:        "inline ASCII",
			contentType: "text/plain",
			filename:    "a.txt",
			want:        `inline; filename="a.txt"`,
		},
		{
			name:        "attachment",
			contentType: "application/zip",
			filename:    "x.zip",
			want:        `attachment; filename="x.zip"`,
		},
		{
			name:        "кавычки и обратный слэш экранируются",
			contentType: "application/zip",
			filename:    `a"b\c.zip`,
			want:        `attachment; filename="a\"b\\c.zip"`,
		},
		{
			name:        "управляющие символы удаляются",
			contentType: "application/zip",
			filename:    "evil\r\nSet-Cookie: x.zip",
			want:        `attachment; filename="evilSet-Cookie: x.zip"`,
		},
		{
			name:        "не-ASCII имя",
			contentType: "application/pdf",
			filename:    "отчёт.pdf",
			want:        `inline; filename="_____.pdf"; filename*=UTF-8''%D0%BE%D1%82%D1%87%D1%91%D1%82.pdf`,
		},
		{
			name:        "пустое имя",
			contentType: "application/zip",
			filename:    "",
			want:        `attachment; filename="download"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContentDisposition(tt.contentType, tt.filename)
			if got != tt.want {
				t.Errorf("хотели %s, получили %s", tt.want, got)
			}
			if strings.ContainsAny(got, "\r\n") {
				t.Error("заголовок не должен содержать перевод строки")
			}
		})
	}
}
