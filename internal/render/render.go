// Package render produces the printable certificate document. The reference
// renderer emits a deterministic text layout; PDF engines plug in behind the
// same interface.
package render

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Document carries everything the certificate layout needs. It is a flat
// snapshot so renderers never reach back into stores.
type Document struct {
	CertificateNumber string
	CertificateType   string
	TypeDisplayName   string

	AssetCode       string
	AssetName       string
	AssetType       string
	Manufacturer    string
	Model           string
	SerialNumber    string
	Location        string
	SafeWorkingLoad float64
	SWLUnit         string

	TestNumber string
	TestType   string
	TestDate   *time.Time
	TestLoad   float64
	LoadUnit   string
	TestResult string

	IssueDate  time.Time
	ExpiryDate time.Time

	InspectorName          string
	InspectorCertification string
	Notes                  string

	SignedBy string
	SignedAt time.Time

	VerifyURL string
}

// Renderer turns a Document into a byte stream.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// Hash returns the hex SHA-256 of a rendered document, stored alongside the
// certificate for integrity verification.
func Hash(rendered []byte) string {
	sum := sha256.Sum256(rendered)
	return hex.EncodeToString(sum[:])
}

// TextRenderer is the deterministic reference layout. Identical input yields
// identical bytes, which keeps the stored hash reproducible.
type TextRenderer struct{}

// NewTextRenderer constructs the reference renderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

const rule = "================================================================"

func (r *TextRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.WriteString(rule + "\n")
	b.WriteString(center("CERTIFICATE") + "\n")
	b.WriteString(center(doc.TypeDisplayName) + "\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("Certificate No.: " + doc.CertificateNumber + "\n\n")

	b.WriteString("Asset Information\n")
	writeField(&b, "Asset Code", doc.AssetCode)
	writeField(&b, "Name", doc.AssetName)
	writeField(&b, "Type", titleize(doc.AssetType))
	writeField(&b, "Manufacturer", orDash(doc.Manufacturer))
	writeField(&b, "Model", orDash(doc.Model))
	writeField(&b, "Serial Number", orDash(doc.SerialNumber))
	writeField(&b, "Location", orDash(doc.Location))
	if doc.SafeWorkingLoad > 0 {
		writeField(&b, "Safe Working Load", fmt.Sprintf("%g %s", doc.SafeWorkingLoad, doc.SWLUnit))
	}
	b.WriteString("\n")

	if doc.TestNumber != "" {
		b.WriteString("Test Information\n")
		writeField(&b, "Test Number", doc.TestNumber)
		writeField(&b, "Test Type", titleize(doc.TestType))
		if doc.TestDate != nil {
			writeField(&b, "Test Date", doc.TestDate.Format("02 January 2006"))
		} else {
			writeField(&b, "Test Date", "-")
		}
		if doc.TestLoad > 0 {
			writeField(&b, "Test Load", fmt.Sprintf("%g %s", doc.TestLoad, doc.LoadUnit))
		} else {
			writeField(&b, "Test Load", "-")
		}
		writeField(&b, "Result", strings.ToUpper(doc.TestResult))
		b.WriteString("\n")
	}

	b.WriteString("Certification Details\n")
	writeField(&b, "Issue Date", doc.IssueDate.Format("02 January 2006"))
	writeField(&b, "Expiry Date", doc.ExpiryDate.Format("02 January 2006"))
	writeField(&b, "Inspector", orDash(doc.InspectorName))
	writeField(&b, "Certification", orDash(doc.InspectorCertification))
	b.WriteString("\n")

	if doc.Notes != "" {
		b.WriteString("Notes:\n" + doc.Notes + "\n\n")
	}

	signedBy := doc.SignedBy
	if signedBy == "" {
		signedBy = "CertiTrack System"
	}
	b.WriteString(fmt.Sprintf("This certificate was digitally signed on %s by %s.\n",
		doc.SignedAt.UTC().Format("02 January 2006 at 15:04"), signedBy))
	if doc.VerifyURL != "" {
		b.WriteString("Verify this certificate at: " + doc.VerifyURL + "\n")
	}
	b.WriteString(rule + "\n")

	return b.Bytes(), nil
}

func writeField(b *bytes.Buffer, label, value string) {
	fmt.Fprintf(b, "  %-20s %s\n", label+":", value)
}

func center(s string) string {
	width := len(rule)
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func titleize(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
