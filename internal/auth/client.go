package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FinUp/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://vs15-internet-banking-back.onrender.com"

var (
	// ErrUnauthorized is returned when the banking API rejects the credentials or the token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoToken is returned when a login response carries no token.
	ErrNoToken = errors.New("login response has no token")
)

// Client talks to the banking API that owns customer identity.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a Client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	CPF   string `json:"cpf"`
	Senha string `json:"senha"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type loggedAccount struct {
	IDConta int64 `json:"idConta"`
	Pessoa  *struct {
		Usuario *struct {
			CPF string `json:"cpf"`
		} `json:"usuario"`
	} `json:"pessoa"`
}

// Login exchanges CPF and password for a session. The session is completed with the logged account.
func (c *Client) Login(ctx context.Context, cpf, password string) (*model.Session, error) {
	body, err := json.Marshal(loginRequest{CPF: cpf, Senha: password})
	if err != nil {
		return nil, err
	}
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth", "", body, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return nil, ErrNoToken
	}

	sess := &model.Session{Token: resp.Token, CPF: cpf}
	if exp, ok := TokenExpiry(resp.Token); ok {
		sess.ExpiresAt = exp
	}
	if err := c.Resolve(ctx, sess); err != nil {
		return nil, err
	}
	zap.L().Info("banking login succeeded", zap.Int64("account", sess.AccountID))
	return sess, nil
}

// Resolve fills the account id and CPF of sess from the logged account endpoint.
func (c *Client) Resolve(ctx context.Context, sess *model.Session) error {
	if sess == nil || sess.Token == "" {
		return ErrUnauthorized
	}
	if sess.Expired(time.Now()) {
		return fmt.Errorf("resolve account: token expired: %w", ErrUnauthorized)
	}
	var acct loggedAccount
	if err := c.do(ctx, http.MethodGet, "/conta/logado", sess.Token, nil, &acct); err != nil {
		return fmt.Errorf("resolve account: %w", err)
	}
	sess.AccountID = acct.IDConta
	if acct.Pessoa != nil && acct.Pessoa.Usuario != nil && acct.Pessoa.Usuario.CPF != "" {
		sess.CPF = acct.Pessoa.Usuario.CPF
	}
	if sess.CPF == "" {
		return fmt.Errorf("resolve account: no cpf in logged account")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
