package github

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	appJWTLifetime   = 10 * time.Minute // GitHub App JWTs expire after 10 minutes max
	tokenRefreshSkew = 5 * time.Minute  // refresh installation tokens before they lapse
)

// initAppAuth loads the App's private key and obtains an initial installation
// token.
func (c *Client) initAppAuth(ctx context.Context, appID, keyPath string) error {
	if appID == "" {
		return errors.New("GitHub App ID is required for app authentication")
	}
	if keyPath == "" {
		return errors.New("GitHub App private key path is required for app authentication")
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}

	c.isAppAuth = true
	c.appID = appID
	c.privateKey = key

	if _, err := c.authToken(ctx); err != nil {
		return err
	}
	slog.Info("Authenticated as GitHub App", "app_id", appID)
	return nil
}

// authToken returns a token suitable for API calls, refreshing the
// installation token when it is close to expiry.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.tokenMu.RLock()
	token, expiry := c.token, c.tokenExpiry
	appAuth := c.isAppAuth
	c.tokenMu.RUnlock()

	if !appAuth {
		return token, nil
	}
	if token != "" && time.Until(expiry) > tokenRefreshSkew {
		return token, nil
	}

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	// Another goroutine may have refreshed while we waited for the lock.
	if c.token != "" && time.Until(c.tokenExpiry) > tokenRefreshSkew {
		return c.token, nil
	}

	token, expiry, err := c.refreshInstallationToken(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh installation token: %w", err)
	}
	c.token = token
	c.tokenExpiry = expiry
	return token, nil
}

// refreshInstallationToken mints an App JWT, resolves the installation, and
// exchanges the JWT for an installation access token.
func (c *Client) refreshInstallationToken(ctx context.Context) (string, time.Time, error) {
	appJWT, err := generateJWT(c.appID, c.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate app JWT: %w", err)
	}

	installationID, err := c.firstInstallationID(ctx, appJWT)
	if err != nil {
		return "", time.Time{}, err
	}

	endpoint := fmt.Sprintf("%s/app/installations/%d/access_tokens", apiBase, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create installation token: %w", err)
	}
	defer drainAndCloseBody(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", time.Time{}, fmt.Errorf("create installation token: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", time.Time{}, fmt.Errorf("decode installation token: %w", err)
	}
	if body.Token == "" {
		return "", time.Time{}, errors.New("received empty installation token")
	}
	return body.Token, body.ExpiresAt, nil
}

// firstInstallationID returns the App's first (usually only) installation.
func (c *Client) firstInstallationID(ctx context.Context, appJWT string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"/app/installations", http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("build installations request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("list installations: %w", err)
	}
	defer drainAndCloseBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("list installations: unexpected status %d", resp.StatusCode)
	}

	var installations []struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&installations); err != nil {
		return 0, fmt.Errorf("decode installations: %w", err)
	}
	if len(installations) == 0 {
		return 0, errors.New("app has no installations")
	}
	return installations[0].ID, nil
}

// generateJWT mints a short-lived RS256 JWT for GitHub App authentication.
func generateJWT(appID string, privateKey []byte) (string, error) {
	block, _ := pem.Decode(privateKey)
	if block == nil {
		return "", errors.New("failed to parse PEM block containing the private key")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		// Try PKCS8 format if PKCS1 fails.
		parsedKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("failed to parse private key: %w", err)
		}
		var ok bool
		key, ok = parsedKey.(*rsa.PrivateKey)
		if !ok {
			return "", errors.New("private key is not RSA")
		}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(appJWTLifetime).Unix(),
		"iss": appID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(key)
}
