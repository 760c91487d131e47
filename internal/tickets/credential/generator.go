// Package credential renders the artifacts that prove a ticket holder's
// right to enter: an encrypted QR code, a badge image and a badge PDF.
package credential

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

const (
	qrDir       = "qrcodes"
	badgeDir    = "badges"
	badgePDFDir = "badges-pdf"
	qrPixels    = 256
)

// Generator writes credential files under PublicDir and returns their
// public paths, rooted at "/".
type Generator struct {
	PublicDir string
	BaseURL   string
	FontPath  string
	Codec     *QRCodec
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewGenerator(cfg config.CredentialConfig, log *logger.Logger) *Generator {
	return &Generator{
		PublicDir: cfg.PublicDir,
		BaseURL:   cfg.PublicBaseURL,
		FontPath:  cfg.FontPath,
		Codec:     NewQRCodec(cfg.QRSecret),
		Logger:    log,
		Now:       time.Now,
	}
}

// Generate renders every artifact for ticket. If any step fails, files
// already written are removed and no references are returned.
func (g *Generator) Generate(ctx context.Context, user *models.User, event *models.Event, ticket *models.Ticket) (refs models.CredentialRefs, err error) {
	defer func() {
		if err != nil {
			g.Discard(refs)
			refs = models.CredentialRefs{}
		}
	}()

	payload, err := g.Codec.Encrypt(QRPayload{
		TicketID: ticket.ID,
		EventID:  event.ID,
		UserID:   user.ID,
		IssuedAt: g.Now().UTC(),
	})
	if err != nil {
		return refs, fmt.Errorf("encrypt qr payload: %w", err)
	}

	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return refs, fmt.Errorf("encode qr: %w", err)
	}

	folder := styleFor(user.Role).folder
	qrRef := path.Join("/", qrDir, ticket.ID+".png")
	badgeRef := path.Join("/", badgeDir, folder, ticket.ID+".png")
	pdfRef := path.Join("/", badgePDFDir, folder, ticket.ID+".pdf")

	if err := g.ensureDir(qrRef); err != nil {
		return refs, err
	}
	if err := qr.WriteFile(qrPixels, g.local(qrRef)); err != nil {
		return refs, fmt.Errorf("write qr: %w", err)
	}
	refs.QRCode = qrRef

	if err := ctx.Err(); err != nil {
		return refs, err
	}

	badge := renderBadge(user.Role, qr.Image(qrPixels))
	if err := g.ensureDir(badgeRef); err != nil {
		return refs, err
	}
	if err := imaging.Save(badge, g.local(badgeRef)); err != nil {
		return refs, fmt.Errorf("write badge: %w", err)
	}
	refs.Badge = badgeRef

	if err := ctx.Err(); err != nil {
		return refs, err
	}

	if err := g.ensureDir(pdfRef); err != nil {
		return refs, err
	}
	if err := writeBadgePDF(g.local(pdfRef), g.FontPath, badge, user, event, ticket); err != nil {
		return refs, err
	}
	refs.BadgePDF = pdfRef

	g.Logger.LogTicket("CREDENTIAL", ticket.ID, fmt.Sprintf("generated %s, %s, %s", qrRef, badgeRef, pdfRef))
	return refs, nil
}

// Discard removes the files behind refs. Missing files are ignored.
func (g *Generator) Discard(refs models.CredentialRefs) {
	for _, ref := range []string{refs.QRCode, refs.Badge, refs.BadgePDF} {
		if ref == "" {
			continue
		}
		if err := os.Remove(g.local(ref)); err != nil && !os.IsNotExist(err) {
			g.Logger.Warn("CREDENTIAL", fmt.Sprintf("Failed to remove %s: %v", ref, err))
		}
	}
}

// URL turns a stored reference into a public URL.
func (g *Generator) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return strings.TrimRight(g.BaseURL, "/") + ref
}

// DecodeQR returns the payload printed on a badge.
func (g *Generator) DecodeQR(encoded string) (*QRPayload, error) {
	return g.Codec.Decrypt(strings.TrimSpace(encoded))
}

func (g *Generator) local(ref string) string {
	return filepath.Join(g.PublicDir, filepath.FromSlash(strings.TrimPrefix(ref, "/")))
}

func (g *Generator) ensureDir(ref string) error {
	if err := os.MkdirAll(filepath.Dir(g.local(ref)), 0755); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	return nil
}
