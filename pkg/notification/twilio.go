package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/financeflow/financeflow/internal/config"
	log "github.com/sirupsen/logrus"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

type SmsSender interface {
	SendSms(ctx context.Context, to string, body string) error
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TwilioClient sends text messages through the Twilio Messages REST resource.
type TwilioClient struct {
	accountSid string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

func NewTwilioClient(cfg config.Twilio) *TwilioClient {
	return &TwilioClient{
		accountSid: cfg.AccountSid,
		authToken:  cfg.AuthToken,
		from:       cfg.From,
		baseURL:    twilioBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TwilioClient) SendSms(ctx context.Context, to string, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSid))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return err
	}
	req.SetBasicAuth(c.accountSid, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("Failed to execute request: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var apiErr twilioError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			log.Debugf("could not decode Twilio error body: %v", err)
		}
		err := fmt.Errorf("twilio rejected message with status %d: %s", resp.StatusCode, apiErr.Message)
		log.Error(err)
		return err
	}
	log.Debugf("sms sent to %s", to)
	return nil
}
