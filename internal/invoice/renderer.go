// Package invoice renders finalized orders into PDF invoices and records
// them in a local SQLite store.
package invoice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/otrade-bot/server/internal/bot/model"
	logx "github.com/otrade-bot/server/pkg/logger"
)

type Config struct {
	OutputDir string `envconfig:"INVOICE_OUTPUT_DIR" default:"invoices"`
	DBPath    string `envconfig:"INVOICE_DB_PATH" default:"data/invoices.db"`
	Currency  string `envconfig:"INVOICE_CURRENCY" default:"USD"`
}

// Service implements model.DocumentRenderer. Every call mints a fresh
// invoice number, writes the PDF under the output directory and persists a
// record; a failed record insert degrades to a warning since the artifact
// already exists.
type Service struct {
	store    *Store
	dir      string
	currency string
	now      func() time.Time
}

func NewService(store *Store, cfg Config) (*Service, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating invoice directory: %w", err)
	}
	logx.Info().Str("dir", cfg.OutputDir).Msg("invoice renderer initialised")
	return &Service{
		store:    store,
		dir:      cfg.OutputDir,
		currency: cfg.Currency,
		now:      time.Now,
	}, nil
}

// Render produces the PDF artifact for a finalized order. The order record
// is never mutated.
func (s *Service) Render(ctx context.Context, order model.OrderRecord) (*model.Invoice, error) {
	now := s.now()
	number := fmt.Sprintf("INV-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
	filename := fmt.Sprintf("invoice_%s_%s.pdf", number, now.Format("20060102_150405"))
	path := filepath.Join(s.dir, filename)

	if err := s.writePDF(order, number, path); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", number, err)
	}

	inv := &model.Invoice{
		SessionID: order.SessionID,
		Number:    number,
		Reference: path,
		Order:     order,
		Total:     order.Total(),
		Currency:  s.currency,
		Status:    model.InvoiceStatusPending,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}

	if s.store != nil {
		if err := s.store.Save(ctx, inv); err != nil {
			logx.Warn().Err(err).Str("invoice_number", number).Msg("invoice rendered but record insert failed")
		}
	}

	logx.Info().Str("invoice_number", number).Str("reference", path).Msg("invoice created")
	return inv, nil
}

func (s *Service) writePDF(order model.OrderRecord, number, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "OTRADE INVOICE")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Invoice Number: "+number)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Session ID: "+order.SessionID)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Date: "+s.now().Format("2006-01-02 15:04:05"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "SHIPPING DETAILS")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Destination Country: "+order.DestinationCountry)
	pdf.Ln(6)
	pdf.Cell(0, 6, "City: "+order.City)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Address: "+order.StreetAddress)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Incoterm: "+order.ShippingIncoterm)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "PRODUCTS")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, l := range order.Lines {
		qty := l.Quantity
		if qty <= 0 {
			qty = 1
		}
		line := fmt.Sprintf("%s: $%.2f x %d %s = $%.2f", l.Name, l.Price, qty, l.Unit, l.Price*float64(qty))
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "TOTAL")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("$%.2f %s", order.Total(), s.currency))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "PAYMENT")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Payment Option: "+order.PaymentOption)

	return pdf.OutputFileAndClose(path)
}

var _ model.DocumentRenderer = (*Service)(nil)
