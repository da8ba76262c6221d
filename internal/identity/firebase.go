package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-evaluator/internal/logger"
	"github.com/spigell/cv-evaluator/internal/utils"
)

const (
	identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

	signInWithPasswordPath = "/accounts:signInWithPassword"
	signUpPath             = "/accounts:signUp"
	signInWithIdpPath      = "/accounts:signInWithIdp"
	sendOobCodePath        = "/accounts:sendOobCode"

	passwordResetRequest = "PASSWORD_RESET"

	passwordProviderID = "password"
)

// APIError is the error body of the Identity Toolkit API, for example
// {"error":{"code":400,"message":"INVALID_PASSWORD"}}.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firebase: %d %s", e.Code, e.Message)
}

type accountRequest struct {
	Email             string `json:"email,omitempty"`
	Password          string `json:"password,omitempty"`
	PostBody          string `json:"postBody,omitempty"`
	RequestURI        string `json:"requestUri,omitempty"`
	ReturnIdpCred     bool   `json:"returnIdpCredential,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type accountResponse struct {
	LocalID    string `json:"localId"`
	Email      string `json:"email"`
	IDToken    string `json:"idToken"`
	ProviderID string `json:"providerId"`
}

type oobRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email"`
}

// Firebase implements Provider with the Firebase Identity Toolkit REST API.
type Firebase struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	BaseURL    string
	Federated  FederatedFlow
}

func NewFirebase(apiKey string, log *zap.Logger) (*Firebase, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("firebase api key is required")
	}

	return &Firebase{
		apiKey:  apiKey,
		logger:  logger.OrNop(log),
		BaseURL: identityToolkitURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (f *Firebase) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	return f.call(ctx, signInWithPasswordPath, &accountRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	}, passwordProviderID)
}

func (f *Firebase) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	return f.call(ctx, signUpPath, &accountRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	}, passwordProviderID)
}

// SignInFederated runs the configured interactive flow and trades its
// credential for a Firebase identity.
func (f *Firebase) SignInFederated(ctx context.Context) (*Identity, error) {
	if f.Federated == nil {
		return nil, ErrNoFederatedFlow
	}

	cred, err := f.Federated.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("federated sign-in: %w", err)
	}

	postBody := url.Values{}
	postBody.Set("providerId", cred.ProviderID)
	if cred.IDToken != "" {
		postBody.Set("id_token", cred.IDToken)
	}
	if cred.AccessToken != "" {
		postBody.Set("access_token", cred.AccessToken)
	}

	requestURI := cred.RequestURI
	if requestURI == "" {
		requestURI = "http://localhost"
	}

	return f.call(ctx, signInWithIdpPath, &accountRequest{
		PostBody:          postBody.Encode(),
		RequestURI:        requestURI,
		ReturnIdpCred:     true,
		ReturnSecureToken: true,
	}, cred.ProviderID)
}

// SignOut is a no-op: ID tokens can not be revoked from the client side and
// Firebase keeps no state for this client.
func (f *Firebase) SignOut(_ context.Context) error {
	return nil
}

// SendPasswordReset asks Firebase to email a password reset link to email.
func (f *Firebase) SendPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}

	if err := f.post(ctx, sendOobCodePath, &oobRequest{
		RequestType: passwordResetRequest,
		Email:       email,
	}, nil); err != nil {
		return err
	}

	f.logger.Debug("password reset email requested", zap.String(logger.FieldEmail, email))
	return nil
}

func (f *Firebase) call(ctx context.Context, path string, payload *accountRequest, providerID string) (*Identity, error) {
	var account accountResponse
	if err := f.post(ctx, path, payload, &account); err != nil {
		return nil, err
	}

	if strings.TrimSpace(account.IDToken) == "" {
		return nil, errors.New("identity provider returned no id token")
	}

	if account.ProviderID != "" {
		providerID = account.ProviderID
	}

	identity := &Identity{
		UID:        account.LocalID,
		Email:      account.Email,
		IDToken:    account.IDToken,
		ProviderID: providerID,
	}

	f.logger.Debug("identity obtained",
		zap.String("uid", identity.UID),
		zap.String("provider", identity.ProviderID),
		logger.Token("id_token", identity.IDToken),
	)

	return identity, nil
}

// post sends payload to the Identity Toolkit and decodes a 200 answer into out.
func (f *Firebase) post(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s?key=%s", utils.JoinURL(f.BaseURL, path), url.QueryEscape(f.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	f.logger.Debug("make identity request", zap.String("path", path))

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp, body)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}

func parseAPIError(resp *http.Response, body []byte) error {
	var payload struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil && payload.Error.Message != "" {
		if payload.Error.Code == 0 {
			payload.Error.Code = resp.StatusCode
		}
		return payload.Error
	}

	return &APIError{Code: resp.StatusCode, Message: resp.Status}
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("email is required")
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}
