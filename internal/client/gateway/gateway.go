// Package gateway is the request/response boundary to the CardScope
// backend. Each remote operation has one method; authenticated calls take
// the current bearer credential and report a stale credential as
// ErrUnauthorized so the caller can invalidate the session uniformly.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avitkov/cardscope/internal/models"
)

var (
	// ErrUnauthorized reports that the backend rejected the credential.
	ErrUnauthorized = errors.New("gateway: credential rejected")
	// ErrInvalidCredentials reports a failed login attempt.
	ErrInvalidCredentials = errors.New("gateway: invalid email or password")
)

// RegistrationError reports a rejected registration with the backend's
// human-readable detail (duplicate email, weak password, ...).
type RegistrationError struct {
	Detail string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("gateway: registration rejected: %s", e.Detail)
}

// Gateway performs HTTP calls against one backend base URL.
type Gateway struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// New returns a Gateway talking to baseURL. A nil logger disables logging.
func New(baseURL string, client *http.Client, log *zap.Logger) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{baseURL: strings.TrimRight(baseURL, "/"), client: client, log: log}
}

// Resolve builds the backend base URL from the configured host and the
// fixed service port. Scheme selection is a deployment concern.
func Resolve(host string, port int, secure bool) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// Login exchanges email and password for a bearer credential via the
// form-encoded /token endpoint.
func (g *Gateway) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var tok models.TokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
			return "", fmt.Errorf("invalid login response: %w", err)
		}
		if tok.AccessToken == "" {
			return "", errors.New("gateway: login response missing access_token")
		}
		return tok.AccessToken, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return "", ErrInvalidCredentials
	default:
		return "", unexpectedStatus(resp)
	}
}

// Register creates a new account. A backend rejection is returned as a
// *RegistrationError carrying the backend's detail message.
func (g *Gateway) Register(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/register",
		bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("register request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil || detail.Detail == "" {
		return unexpectedStatus(resp)
	}
	return &RegistrationError{Detail: detail.Detail}
}

// Scan submits one JPEG capture for recognition.
func (g *Gateway) Scan(ctx context.Context, token string, image []byte) (*models.ScanResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "scan.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/cards/scan", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scan request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := g.checkAuthenticated(resp); err != nil {
		return nil, err
	}

	var result models.ScanResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("invalid scan response: %w", err)
	}
	g.log.Debug("scan completed",
		zap.String("method", result.ScanMethod),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("matched", result.CardData != nil))
	return &result, nil
}

// SaveCard persists a reviewed card together with its scan confidence and
// returns the backend-assigned record id.
func (g *Gateway) SaveCard(ctx context.Context, token string, card models.CardRecord, confidence float64) (int64, error) {
	payload := models.SaveCardRequest{CardRecord: card, Confidence: confidence}
	payload.ID = 0 // the backend assigns identifiers

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/cards/", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("save request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := g.checkAuthenticated(resp); err != nil {
		return 0, err
	}

	var saved models.CardRecord
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return 0, fmt.Errorf("invalid save response: %w", err)
	}
	return saved.ID, nil
}

// ListLibrary fetches the caller's card library. The snapshot is fetched
// fresh on every call and never cached here.
func (g *Gateway) ListLibrary(ctx context.Context, token string) ([]models.CardRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/cards/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("library request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := g.checkAuthenticated(resp); err != nil {
		return nil, err
	}

	var cards []models.CardRecord
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		return nil, fmt.Errorf("invalid library response: %w", err)
	}
	return cards, nil
}

// TrainModel triggers backend model training and returns the backend's
// status message.
func (g *Gateway) TrainModel(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/cards/train-ml", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("train request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := g.checkAuthenticated(resp); err != nil {
		return "", err
	}

	var tr models.TrainResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("invalid train response: %w", err)
	}
	return tr.Message, nil
}

// checkAuthenticated maps a 401 to ErrUnauthorized and any other non-2xx
// status to a descriptive error.
func (g *Gateway) checkAuthenticated(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		path := ""
		if resp.Request != nil {
			path = resp.Request.URL.Path
		}
		g.log.Warn("backend rejected credential", zap.String("path", path))
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return unexpectedStatus(resp)
	}
	return nil
}

func unexpectedStatus(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("server error: %s (%s)", msg, strconv.Itoa(resp.StatusCode))
}
