package telegram

import (
	"fmt"
	stdhtml "html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

func FormatError(err error) string {
	return fmt.Sprintf("❌ <b>Error:</b> %s", stdhtml.EscapeString(err.Error()))
}

// FormatResult renders the outcome of a finished upload. A link that is not a
// URL is a notice (for example a skipped file) and is shown as is.
func FormatResult(name, link string, size int64, took time.Duration) string {
	if !strings.HasPrefix(link, "http") {
		return "⚠️ " + stdhtml.EscapeString(link)
	}
	return fmt.Sprintf(
		"✅ <b>Uploaded to StreamTape</b>\n"+
			"├ Name : <code>%s</code>\n"+
			"├ Size : <code>%s</code>\n"+
			"├ Time : <code>%s</code>\n"+
			"└ 🔗 <a href=\"%s\">%s</a>",
		stdhtml.EscapeString(name),
		humanize.Bytes(uint64(size)),
		took.Round(time.Second),
		stdhtml.EscapeString(link), stdhtml.EscapeString(link),
	)
}

func FormatCancelled(name string) string {
	return fmt.Sprintf("🚫 Upload of <code>%s</code> cancelled.", stdhtml.EscapeString(name))
}
