package renderer

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/explainer/internal/config"
)

// ShareCode renders url as a QR code in SVG markup for the summary card.
// Dark modules use the theme's primary text color on the theme background.
func ShareCode(url string, theme config.Theme) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("share code: empty url")
	}
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("share code: %w", err)
	}
	bitmap := qr.Bitmap()
	size := len(bitmap)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, size, size)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, size, size, theme.Background)
	fmt.Fprintf(&b, `<path fill="%s" d="`, theme.PrimaryText)
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&b, "M%d %dh1v1h-1z", x, y)
			}
		}
	}
	b.WriteString(`"/></svg>`)
	return b.String(), nil
}
