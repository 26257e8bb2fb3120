// listing.go — HTML-листинг группы и форматирование размеров и сроков.
// Листинг строится только из метаданных, хранилище объектов не читается.
package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/ui/pages"
)

// FileURL строит публичную ссылку на ключ: base + "/f/" + экранированные сегменты.
func FileURL(baseURL, fileID string) string {
	segments := strings.Split(fileID, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(baseURL, "/") + "/f/" + strings.Join(segments, "/")
}

// FormatSize возвращает размер в человекочитаемом виде (основание 1024).
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 4; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTP"[exp])
}

// FormatRemaining возвращает оставшееся время: "2d 3h", "5h 12m", "45m",
// "<1m" или "expired". Для бессрочных записей — пустая строка.
func FormatRemaining(expiresAt *time.Time, now time.Time) string {
	if expiresAt == nil {
		return ""
	}
	d := expiresAt.Sub(now)
	if d <= 0 {
		return "expired"
	}

	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return "<1m"
	}
}

// Listing — данные группы для отображения.
type Listing struct {
	GroupID   string
	Members   []*model.Upload
	ExpiresAt *time.Time
}

// RenderListing пишет HTML-листинг группы. Ссылки строятся от baseURL.
func RenderListing(ctx context.Context, w io.Writer, l *Listing, baseURL string, now time.Time) error {
	data := pages.ListingData{
		GroupID: l.GroupID,
		Entries: make([]pages.ListingEntry, 0, len(l.Members)),
	}

	var total int64
	for _, m := range l.Members {
		total += m.Size
		data.Entries = append(data.Entries, pages.ListingEntry{
			Name:        m.DisplayName(),
			URL:         FileURL(baseURL, m.FileID),
			Size:        FormatSize(m.Size),
			ContentType: m.ContentType,
		})
	}
	data.TotalSize = FormatSize(total)

	if l.ExpiresAt != nil {
		data.ExpiresAt = l.ExpiresAt.UTC().Format(time.RFC3339)
		data.Remaining = FormatRemaining(l.ExpiresAt, now)
	}

	if err := pages.Listing(data).Render(ctx, w); err != nil {
		return fmt.Errorf("ошибка рендеринга листинга: %w", err)
	}
	return nil
}
