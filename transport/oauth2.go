package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

// OAuth2Config carries the client credentials needed to mint a fresh access
// token for XOAUTH2 (§6.5 hub.auth_type=oauth2), grounded in the original
// client's _refresh_access_token/_generate_xoauth2_string.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string // defaults to the Google token endpoint if empty
}

const defaultOAuth2TokenURL = "https://oauth2.googleapis.com/token"

// fetchAccessToken exchanges the configured refresh token for a short-lived
// access token via the standard OAuth2 refresh-token grant.
func fetchAccessToken(cfg OAuth2Config) (string, error) {
	if cfg.RefreshToken == "" {
		return "", fmt.Errorf("oauth2: no refresh token configured")
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultOAuth2TokenURL
	}
	form := url.Values{
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
		"refresh_token": {cfg.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.PostForm(tokenURL, form)
	if err != nil {
		return "", fmt.Errorf("oauth2: refresh request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oauth2: refresh request failed: %s", resp.Status)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("oauth2: decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("oauth2: token response had no access_token")
	}
	return body.AccessToken, nil
}

// xoauth2String builds the SASL XOAUTH2 initial-response string (RFC-less,
// Google/Microsoft convention): "user=<email>\x01auth=Bearer <token>\x01\x01".
func xoauth2String(email, accessToken string) string {
	var b strings.Builder
	b.WriteString("user=")
	b.WriteString(email)
	b.WriteByte('\x01')
	b.WriteString("auth=Bearer ")
	b.WriteString(accessToken)
	b.WriteByte('\x01')
	b.WriteByte('\x01')
	return b.String()
}

// xoauth2Auth implements smtp.Auth for the XOAUTH2 mechanism.
type xoauth2Auth struct {
	email, accessToken string
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "XOAUTH2", []byte(xoauth2String(a.email, a.accessToken)), nil
}

func (a *xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		// Server rejected the token and sent a JSON error continuation;
		// respond with an empty line to complete the failed exchange.
		return []byte{}, nil
	}
	return nil, nil
}
