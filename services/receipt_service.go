package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	config "github.com/kamaubrian/nyumba_stays/configs"
	"github.com/kamaubrian/nyumba_stays/database"
	"github.com/kamaubrian/nyumba_stays/models"
)

const receiptTemplate = `<!DOCTYPE html>
<html>
<head><style>
  body { font-family: Georgia, serif; margin: 48px; color: #222; }
  h1 { border-bottom: 2px solid #0a7d5c; padding-bottom: 8px; }
  table { width: 100%; border-collapse: collapse; margin-top: 24px; }
  td { padding: 8px 0; border-bottom: 1px solid #eee; }
  .total { font-weight: bold; font-size: 1.2em; }
</style></head>
<body>
  <h1>Nyumba Stays Booking Receipt</h1>
  <p>Reference: <b>{{.ReferenceCode}}</b></p>
  <table>
    <tr><td>Guest</td><td>{{.GuestName}}</td></tr>
    <tr><td>Property</td><td>{{.PropertyTitle}}</td></tr>
    <tr><td>Check-in</td><td>{{.CheckIn}}</td></tr>
    <tr><td>Check-out</td><td>{{.CheckOut}}</td></tr>
    <tr><td>Nights</td><td>{{.Nights}}</td></tr>
    <tr class="total"><td>Total paid</td><td>{{.Currency}} {{.Total}}</td></tr>
  </table>
  <p>Paid on {{.PaidOn}}. Karibu tena!</p>
</body>
</html>`

// GenerateBookingReceipt renders a PDF receipt for a paid booking, uploads
// it to Cloudinary, and stores the URL on the payment record. Called after
// a payment succeeds; failures are logged and never affect the payment.
func GenerateBookingReceipt(payment models.Payment, booking models.Booking) {
	htmlData, err := renderReceiptHTML(payment, booking)
	if err != nil {
		log.Printf("🔥 Failed to render receipt HTML for payment %s: %v", payment.ID, err)
		return
	}

	pdfBytes, err := generatePDFFromHTML(htmlData)
	if err != nil {
		log.Printf("🔥 Failed to generate receipt PDF for payment %s: %v", payment.ID, err)
		return
	}

	uploadURL, err := uploadReceiptToCloudinary(pdfBytes, booking.ReferenceCode)
	if err != nil {
		log.Printf("🔥 Failed to upload receipt for payment %s: %v", payment.ID, err)
		return
	}

	if err := database.DB.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("receipt_url", uploadURL).Error; err != nil {
		log.Printf("🔥 Failed to save receipt URL for payment %s: %v", payment.ID, err)
		return
	}
	log.Printf("✅ Generated receipt for booking %s.", booking.ReferenceCode)
}

func renderReceiptHTML(payment models.Payment, booking models.Booking) (string, error) {
	tmpl, err := template.New("receipt").Parse(receiptTemplate)
	if err != nil {
		return "", err
	}

	data := struct {
		ReferenceCode string
		GuestName     string
		PropertyTitle string
		CheckIn       string
		CheckOut      string
		Nights        int
		Currency      string
		Total         string
		PaidOn        string
	}{
		ReferenceCode: booking.ReferenceCode,
		GuestName:     booking.Guest.DisplayName(),
		PropertyTitle: booking.Property.Title,
		CheckIn:       booking.CheckIn.Format("January 2, 2006"),
		CheckOut:      booking.CheckOut.Format("January 2, 2006"),
		Nights:        booking.Nights(),
		Currency:      payment.Currency,
		Total:         fmt.Sprintf("%.2f", payment.Amount),
		PaidOn:        time.Now().Format("January 2, 2006"),
	}

	var renderedHTML bytes.Buffer
	if err := tmpl.Execute(&renderedHTML, data); err != nil {
		return "", err
	}
	return renderedHTML.String(), nil
}

func generatePDFFromHTML(htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadReceiptToCloudinary(fileBytes []byte, referenceCode string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("receipts/%s_%s", referenceCode, uuid.New().String()),
		Folder:       "nyumba_stays_receipts",
		ResourceType: "raw",
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams)
	if err != nil {
		return "", err
	}

	return uploadResult.SecureURL, nil
}
