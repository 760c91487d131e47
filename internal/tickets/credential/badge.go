package credential

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/signintech/gopdf"

	"ms-booking/internal/models"
)

const (
	badgeWidth  = 600
	badgeHeight = 900
	qrSize      = 360
)

// pageA6 is ISO A6 in points; gopdf only ships the A4 family and a few others.
var pageA6 = &gopdf.Rect{W: 297.64, H: 419.53}

type roleStyle struct {
	folder string
	color  color.NRGBA
}

var roleStyles = map[string]roleStyle{
	"user":      {folder: "users", color: color.NRGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF}},
	"volunteer": {folder: "volunteers", color: color.NRGBA{R: 0x21, G: 0x96, B: 0xF3, A: 0xFF}},
	"organizer": {folder: "organizers", color: color.NRGBA{R: 0xF4, G: 0x43, B: 0x36, A: 0xFF}},
}

func styleFor(role string) roleStyle {
	if s, ok := roleStyles[role]; ok {
		return s
	}
	return roleStyles["user"]
}

// renderBadge draws the role-colored badge with a white card holding the QR code.
func renderBadge(role string, qr image.Image) *image.NRGBA {
	badge := imaging.New(badgeWidth, badgeHeight, styleFor(role).color)

	card := imaging.New(qrSize+40, qrSize+40, color.White)
	card = imaging.Paste(card, imaging.Resize(qr, qrSize, qrSize, imaging.NearestNeighbor), image.Pt(20, 20))

	x := (badgeWidth - card.Bounds().Dx()) / 2
	return imaging.Paste(badge, card, image.Pt(x, badgeHeight-card.Bounds().Dy()-80))
}

// writeBadgePDF puts the badge on an A6 page. Text lines are added only
// when a TTF font is configured.
func writeBadgePDF(path, fontPath string, badge image.Image, user *models.User, event *models.Event, ticket *models.Ticket) error {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *pageA6})
	pdf.AddPage()

	page := pageA6
	imgW := page.W - 40
	imgH := imgW * badgeHeight / badgeWidth
	if fontPath != "" {
		imgH = imgH * 0.75
		imgW = imgH * badgeWidth / badgeHeight
	}

	if err := pdf.ImageFrom(badge, (page.W-imgW)/2, 20, &gopdf.Rect{W: imgW, H: imgH}); err != nil {
		return fmt.Errorf("failed to draw badge: %w", err)
	}

	if fontPath != "" {
		if err := pdf.AddTTFFont("badge", fontPath); err != nil {
			return fmt.Errorf("failed to load font: %w", err)
		}
		if err := pdf.SetFont("badge", "", 10); err != nil {
			return fmt.Errorf("failed to set font: %w", err)
		}
		lines := []string{
			event.Name,
			user.Name,
			string(ticket.TicketType),
			"Ticket " + ticket.ID,
		}
		y := 30 + imgH
		for _, line := range lines {
			pdf.SetXY(20, y)
			if err := pdf.Cell(nil, line); err != nil {
				return fmt.Errorf("failed to write badge text: %w", err)
			}
			y += 14
		}
	}

	if err := pdf.WritePdf(path); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}
