package auth

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestFileTokenStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewFileTokenStore(path)

	token := &oauth2.Token{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}

	if err := store.SaveToken(token); err != nil {
		t.Fatalf("SaveToken() returned an error: %v", err)
	}

	loaded, err := store.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken() returned an error: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadToken() returned nil for a saved token")
	}
	if loaded.AccessToken != token.AccessToken {
		t.Errorf("Expected AccessToken '%s', got '%s'", token.AccessToken, loaded.AccessToken)
	}
	if loaded.RefreshToken != token.RefreshToken {
		t.Errorf("Expected RefreshToken '%s', got '%s'", token.RefreshToken, loaded.RefreshToken)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() returned an error: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected token file mode 0600, got %v", info.Mode().Perm())
	}
}

func TestFileTokenStore_MissingFile(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "missing.json"))

	token, err := store.LoadToken()
	if err != nil {
		t.Fatalf("Expected no error for a missing token file, got %v", err)
	}
	if token != nil {
		t.Errorf("Expected nil token for a missing file, got %+v", token)
	}
}

func TestFileTokenStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatalf("Failed to write corrupt token file: %v", err)
	}

	store := NewFileTokenStore(path)
	if _, err := store.LoadToken(); err == nil {
		t.Error("Expected an error for a corrupt token file")
	}
}

func TestStartLocalServer_ReceivesCode(t *testing.T) {
	redirectURL, codeChan, errorChan, err := startLocalServer()
	if err != nil {
		t.Fatalf("startLocalServer() returned an error: %v", err)
	}

	resp, err := http.Get(redirectURL + "/?code=auth-code-123")
	if err != nil {
		t.Fatalf("Failed to hit the callback endpoint: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "Authorization successful") {
		t.Errorf("Expected a success page, got %q", body)
	}

	select {
	case code := <-codeChan:
		if code != "auth-code-123" {
			t.Errorf("Expected code 'auth-code-123', got '%s'", code)
		}
	case err := <-errorChan:
		t.Fatalf("Expected a code, got error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the authorization code")
	}
}

func TestStartLocalServer_AuthorizationError(t *testing.T) {
	redirectURL, codeChan, errorChan, err := startLocalServer()
	if err != nil {
		t.Fatalf("startLocalServer() returned an error: %v", err)
	}

	resp, err := http.Get(redirectURL + "/?error=access_denied")
	if err != nil {
		t.Fatalf("Failed to hit the callback endpoint: %v", err)
	}
	resp.Body.Close()

	select {
	case code := <-codeChan:
		t.Fatalf("Expected an error, got code '%s'", code)
	case err := <-errorChan:
		if !strings.Contains(err.Error(), "access_denied") {
			t.Errorf("Expected the error to name access_denied, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the authorization error")
	}
}

func TestLoadGoogleCredentials_Installed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	content := `{"installed": {"client_id": "id-installed", "client_secret": "secret-installed"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write credentials file: %v", err)
	}

	clientID, clientSecret, err := LoadGoogleCredentials(path)
	if err != nil {
		t.Fatalf("LoadGoogleCredentials() returned an error: %v", err)
	}
	if clientID != "id-installed" || clientSecret != "secret-installed" {
		t.Errorf("Expected installed credentials, got '%s'/'%s'", clientID, clientSecret)
	}
}

func TestLoadGoogleCredentials_Web(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	content := `{"web": {"client_id": "id-web", "client_secret": "secret-web"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write credentials file: %v", err)
	}

	clientID, clientSecret, err := LoadGoogleCredentials(path)
	if err != nil {
		t.Fatalf("LoadGoogleCredentials() returned an error: %v", err)
	}
	if clientID != "id-web" || clientSecret != "secret-web" {
		t.Errorf("Expected web credentials, got '%s'/'%s'", clientID, clientSecret)
	}
}

func TestLoadGoogleCredentials_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{}`), 0600); err != nil {
		t.Fatalf("Failed to write credentials file: %v", err)
	}

	if _, _, err := LoadGoogleCredentials(path); err == nil {
		t.Error("Expected an error for credentials without installed or web sections")
	}
}
