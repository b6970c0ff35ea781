package biliclient

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// pollInterval and pollTimeout ground the §"Supplemented features" #3
// qrcode login loop on original_source's poll cadence (the original polls
// every second for up to 180s).
const (
	pollInterval = 1 * time.Second
	pollTimeout  = 180 * time.Second
)

const (
	qrcodeStatusSuccess        = 0
	qrcodeStatusExpired        = 86038
	qrcodeStatusNotConfirmed   = 86090
	qrcodeStatusNotYetScanned  = 86101
)

// GenerateQRCode requests a fresh login QR code — grounded on
// bili_client.rs's generate_qrcode.
func (c *Client) GenerateQRCode() (QrcodeData, error) {
	var envelope Envelope[QrcodeData]
	resp, err := c.http.R().
		SetResult(&envelope).
		Get("https://passport.bilibili.com/x/passport-login/web/qrcode/generate")
	if err != nil {
		return QrcodeData{}, fmt.Errorf("failed to generate qrcode: %w", err)
	}
	if resp.StatusCode() != 200 {
		return QrcodeData{}, fmt.Errorf("unexpected status generating qrcode: %d", resp.StatusCode())
	}
	if envelope.Code != 0 {
		return QrcodeData{}, fmt.Errorf("unexpected code generating qrcode: %d %s", envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}

// PollQRCodeStatus checks one poll of qrcodeKey. On success, the SESSDATA
// cookie set by the response is returned in QrcodeStatus.SessData.
func (c *Client) PollQRCodeStatus(qrcodeKey string) (QrcodeStatus, error) {
	var envelope Envelope[QrcodeStatus]
	resp, err := c.http.R().
		SetQueryParam("qrcode_key", qrcodeKey).
		SetResult(&envelope).
		Get("https://passport.bilibili.com/x/passport-login/web/qrcode/poll")
	if err != nil {
		return QrcodeStatus{}, fmt.Errorf("failed to poll qrcode status: %w", err)
	}
	if resp.StatusCode() != 200 {
		return QrcodeStatus{}, fmt.Errorf("unexpected status polling qrcode: %d", resp.StatusCode())
	}

	status := envelope.Data
	status.Code = envelope.Data.Code
	if status.Code == qrcodeStatusSuccess {
		for _, cookie := range resp.Cookies() {
			if cookie.Name == "SESSDATA" {
				status.SessData = cookie.Value
				break
			}
		}
		if status.SessData == "" {
			// Fallback: some gateways fold cookies into Set-Cookie headers
			// resty's Cookies() doesn't see (proxies, strict SameSite).
			for _, raw := range resp.Header().Values("Set-Cookie") {
				if v, ok := extractSessData(raw); ok {
					status.SessData = v
					break
				}
			}
		}
	}
	return status, nil
}

func extractSessData(setCookie string) (string, bool) {
	for _, part := range strings.Split(setCookie, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "SESSDATA="); ok {
			return v, true
		}
	}
	return "", false
}

// LoginWithQRCode drives the poll half of the login flow for a qrcodeKey the
// caller already obtained from GenerateQRCode (and displayed), returning
// the session cookie once the user confirms the scan on their phone.
// Grounded on original_source's generate_qrcode -> poll_qrcode_status
// command pair (commands.rs), with the polling folded into one
// bounded-duration loop since this module has no separate IPC event
// channel for intermediate statuses. It does not generate or display the
// QR code itself.
func (c *Client) LoginWithQRCode(ctx context.Context, qrcodeKey string) (string, error) {
	deadline := time.Now().Add(pollTimeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return "", fmt.Errorf("qrcode login timed out after %s", pollTimeout)
			}
			status, err := c.PollQRCodeStatus(qrcodeKey)
			if err != nil {
				return "", err
			}
			switch status.Code {
			case qrcodeStatusSuccess:
				c.SetSessData(status.SessData)
				return status.SessData, nil
			case qrcodeStatusExpired:
				return "", fmt.Errorf("qrcode expired, generate a new one")
			case qrcodeStatusNotConfirmed, qrcodeStatusNotYetScanned:
				continue
			default:
				return "", fmt.Errorf("unexpected qrcode status %d: %s", status.Code, status.Message)
			}
		}
	}
}
