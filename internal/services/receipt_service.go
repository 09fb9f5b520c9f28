package services

import (
	"bytes"
	"fmt"

	"stayhub/internal/domain"
	"stayhub/internal/domain/models"
	"stayhub/internal/repositories"
	"stayhub/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// ReceiptService renders the settlement receipt PDF for a paid booking:
// gross amount, the three-way split, and the correlation reference.
type ReceiptService struct {
	Bookings  repositories.BookingRepository
	Payouts   repositories.PayoutRepository
	RequestID string
}

// Generate builds the PDF. Only completed payments have a receipt.
func (s ReceiptService) Generate(bookingID int64) ([]byte, string, error) {
	booking, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return nil, "", err
	}
	if booking.PaymentStatus != models.PaymentCompleted {
		return nil, "", domain.ConflictError{Resource: "booking", Msg: "payment not completed"}
	}

	hp, err := s.Payouts.GetHostPayment(bookingID)
	if err != nil {
		return nil, "", err
	}
	ac, hasAgent, err := s.Payouts.GetAgentCommission(bookingID)
	if err != nil {
		return nil, "", err
	}

	platformShare := booking.Amount - hp.NetAmount
	if hasAgent {
		platformShare -= ac.CommissionAmount
	}

	utils.LogEvent(s.RequestID, "receipt", "generate", fmt.Sprintf("booking_id=%d", bookingID))

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payment Receipt - Booking %d", bookingID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Payment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(60, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
	}

	line("Booking", fmt.Sprintf("#%d (%s)", booking.ID, booking.ListingType))
	line("Reference", booking.TransactionID)
	line("Status", booking.PaymentStatus)
	if booking.WalletDistributedAt != nil {
		line("Settled at", utils.FormatDateTime(*booking.WalletDistributedAt))
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 9, "Settlement breakdown", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	row := func(label string, amount int64) {
		pdf.CellFormat(120, 8, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, utils.FormatMinor(amount)+" "+booking.Currency, "", 1, "R", false, 0, "")
	}
	row("Host share", hp.NetAmount)
	if hasAgent {
		row("Agent commission", ac.CommissionAmount)
	}
	row("Platform fee", platformShare)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(120, 9, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 9, utils.FormatMinor(booking.Amount)+" "+booking.Currency, "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("receipt-booking-%d.pdf", bookingID)
	return buf.Bytes(), filename, nil
}
