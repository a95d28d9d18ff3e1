package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"smartwin-be/internal/config"
	"smartwin-be/internal/logger"

	"go.uber.org/zap"
)

const (
	resendURL  = "https://api.resend.com/emails"
	resendFrom = "Smart Win Payments <onboarding@resend.dev>"
)

var emailTemplate = template.Must(template.New("payment").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #28a745;">Payment Successful</h2>
  <p>A new payment has been received via <strong>Pesapal</strong>:</p>

  <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
    <tr style="background-color: #f8f9fa;">
      <td style="padding: 10px; border: 1px solid #dee2e6;"><strong>Order Reference:</strong></td>
      <td style="padding: 10px; border: 1px solid #dee2e6;">{{.MerchantReference}}</td>
    </tr>
    <tr>
      <td style="padding: 10px; border: 1px solid #dee2e6;"><strong>Transaction ID:</strong></td>
      <td style="padding: 10px; border: 1px solid #dee2e6;">{{.OrderTrackingID}}</td>
    </tr>
    <tr style="background-color: #f8f9fa;">
      <td style="padding: 10px; border: 1px solid #dee2e6;"><strong>Amount:</strong></td>
      <td style="padding: 10px; border: 1px solid #dee2e6;">{{.Currency}} {{.Amount}}</td>
    </tr>
    <tr>
      <td style="padding: 10px; border: 1px solid #dee2e6;"><strong>Payment Method:</strong></td>
      <td style="padding: 10px; border: 1px solid #dee2e6;">{{.PaymentMethod}}</td>
    </tr>
    <tr style="background-color: #f8f9fa;">
      <td style="padding: 10px; border: 1px solid #dee2e6;"><strong>Status:</strong></td>
      <td style="padding: 10px; border: 1px solid #dee2e6; color: #28a745;"><strong>{{.Status}}</strong></td>
    </tr>
    <tr>
      <td style="padding: 10px; border: 1px solid #dee2e6;"><strong>Date:</strong></td>
      <td style="padding: 10px; border: 1px solid #dee2e6;">{{.ReceivedAt}}</td>
    </tr>
  </table>

  <p style="color: #6c757d; font-size: 14px; margin-top: 20px;">
    This is an automated notification from the Smart Win payment system.
  </p>
</div>
`))

type resendNotifier struct {
	apiKey     string
	from       string
	to         string
	httpClient *http.Client
}

// NewResendNotifier sends payment summaries to the operator inbox through
// the Resend API.
func NewResendNotifier(cfg *config.Config) Notifier {
	if cfg.ResendAPIKey == "" {
		logger.L().Warn("Resend API key is empty, notifications will fail")
	}

	return &resendNotifier{
		apiKey: cfg.ResendAPIKey,
		from:   resendFrom,
		to:     cfg.AdminEmail,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *resendNotifier) Send(ctx context.Context, n Notification) (string, error) {
	var html bytes.Buffer
	data := struct {
		Notification
		Amount     string
		ReceivedAt string
	}{
		Notification: n,
		Amount:       fmt.Sprintf("%.2f", n.Amount),
		ReceivedAt:   n.ReceivedAt.Format(time.RFC1123),
	}
	if err := emailTemplate.Execute(&html, data); err != nil {
		return "", fmt.Errorf("failed rendering notification email: %w", err)
	}

	body, err := json.Marshal(map[string]interface{}{
		"from":    r.from,
		"to":      []string{r.to},
		"subject": "Pesapal Payment Received - Smart Win",
		"html":    html.String(),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", resendURL, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read resend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.FromCtx(ctx).Error("Resend returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody),
		)
		return "", fmt.Errorf("resend error: status %d", resp.StatusCode)
	}

	var res struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &res); err != nil {
		return "", fmt.Errorf("failed decoding resend response: %w", err)
	}

	logger.FromCtx(ctx).Info("Operator notification delivered",
		zap.String("delivery_id", res.ID),
		zap.String("order_tracking_id", n.OrderTrackingID),
	)
	return res.ID, nil
}
