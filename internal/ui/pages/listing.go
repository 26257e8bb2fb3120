// Пакет pages — HTML-страницы, отдаваемые сервисом.
// Страницы собираются как templ.Component; весь пользовательский текст
// проходит через templ.EscapeString, ссылки через templ.URL.
package pages

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// ListingEntry — строка таблицы листинга.
type ListingEntry struct {
	Name        string
	URL         string
	Size        string
	ContentType string
}

// ListingData — данные страницы листинга группы.
type ListingData struct {
	GroupID   string
	Entries   []ListingEntry
	TotalSize string
	// ExpiresAt пуст для бессрочной группы.
	ExpiresAt string
	Remaining string
}

const listingHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
table{border-collapse:collapse;min-width:40rem}
th,td{text-align:left;padding:.3rem .8rem;border-bottom:1px solid #eee}
td.size{text-align:right;white-space:nowrap}
.expiry{color:#a15c00}
</style>
`

// Listing — страница «Index of /<group>».
func Listing(data ListingData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pw := &pageWriter{w: w}
		group := templ.EscapeString(data.GroupID)

		pw.raw(listingHead)
		pw.raw("<title>Index of /", group, "</title>\n</head>\n<body>\n")
		pw.raw("<h1>Index of /", group, "</h1>\n")
		if data.ExpiresAt != "" {
			pw.raw(`<p class="expiry">Expires `, templ.EscapeString(data.ExpiresAt),
				" (", templ.EscapeString(data.Remaining), ")</p>\n")
		}
		if pw.err != nil {
			return pw.err
		}
		if err := listingTable(data.Entries).Render(ctx, w); err != nil {
			return err
		}
		pw.raw("<p>", strconv.Itoa(len(data.Entries)), " file(s), ",
			templ.EscapeString(data.TotalSize), "</p>\n</body>\n</html>\n")
		return pw.err
	})
}

func listingTable(entries []ListingEntry) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		pw := &pageWriter{w: w}
		pw.raw("<table>\n<thead><tr><th>Name</th><th>Type</th><th>Size</th></tr></thead>\n<tbody>\n")
		for _, e := range entries {
			href := string(templ.URL(e.URL))
			pw.raw(`<tr><td><a href="`, templ.EscapeString(href), `">`,
				templ.EscapeString(e.Name), "</a></td><td>",
				templ.EscapeString(e.ContentType), `</td><td class="size">`,
				templ.EscapeString(e.Size), "</td></tr>\n")
		}
		pw.raw("</tbody>\n</table>\n")
		return pw.err
	})
}

// pageWriter запоминает первую ошибку записи и пропускает остальные.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(parts ...string) {
	for _, s := range parts {
		if p.err != nil {
			return
		}
		_, p.err = io.WriteString(p.w, s)
	}
}
