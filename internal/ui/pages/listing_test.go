package pages

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestListing_Render(t *testing.T) {
	data := ListingData{
		GroupID: "G",
		Entries: []ListingEntry{
			{Name: "a.txt", URL: "https://h/f/G/a.txt", Size: "1 B", ContentType: "text/plain"},
			{Name: `<b>"x"</b>`, URL: "https://h/f/G/x", Size: "2 B", ContentType: "text/html"},
		},
		TotalSize: "3 B",
		ExpiresAt: "2026-01-02T00:00:00Z",
		Remaining: "1d 0h",
	}

	var buf bytes.Buffer
	if err := Listing(data).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"<title>Index of /G</title>",
		`href="https://h/f/G/a.txt"`,
		"&lt;b&gt;&#34;x&#34;&lt;/b&gt;",
		"Expires 2026-01-02T00:00:00Z (1d 0h)",
		"2 file(s), 3 B",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("нет %q в:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<b>") {
		t.Error("имя файла не экранировано")
	}
}

func TestListing_NoExpiry(t *testing.T) {
	var buf bytes.Buffer
	if err := Listing(ListingData{GroupID: "G"}).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), "Expires") {
		t.Error("для бессрочной группы нет строки о сроке")
	}
	if !strings.Contains(buf.String(), "0 file(s)") {
		t.Errorf("неожиданный вывод:\n%s", buf.String())
	}
}

func TestListing_UnsafeURLSanitized(t *testing.T) {
	var buf bytes.Buffer
	data := ListingData{GroupID: "G", Entries: []ListingEntry{{Name: "x", URL: "javascript:alert(1)"}}}
	if err := Listing(data).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), "javascript:") {
		t.Errorf("небезопасная ссылка попала в страницу:\n%s", buf.String())
	}
}

type failingWriter struct{ after int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("disk full")
	}
	f.after--
	return len(p), nil
}

func TestListing_WriteError(t *testing.T) {
	for _, after := range []int{0, 3, 10} {
		data := ListingData{GroupID: "G", Entries: []ListingEntry{{Name: "a", URL: "https://h/f/G/a"}}}
		if err := Listing(data).Render(context.Background(), &failingWriter{after: after}); err == nil {
			t.Errorf("after=%d: ожидалась ошибка записи", after)
		}
	}
}
