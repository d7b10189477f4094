package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/scrypt"
)

const (
	configDirName  = "twintray"
	configFileName = "config.enc"
	saltSize       = 16
	nonceSize      = 12
)

// Settings is the persisted application configuration. Command names are kept
// here so packagers can point the tray at renamed or wrapped binaries.
type Settings struct {
	// ServiceCommand is the VPN client binary (start/stop/status/auth).
	ServiceCommand string `json:"serviceCommand"`
	// NotifierCommand is the companion binary reporting resources as JSON.
	NotifierCommand string `json:"notifierCommand"`
	// ElevateCommand wraps ServiceCommand when elevation is required.
	ElevateCommand string `json:"elevateCommand"`
	// PollIntervalSeconds is the background refresh cadence.
	PollIntervalSeconds int `json:"pollIntervalSeconds"`
	// CommandTimeoutSeconds bounds every external command invocation.
	CommandTimeoutSeconds int `json:"commandTimeoutSeconds"`
	// Notifications enables desktop notifications for authentication flows.
	Notifications bool `json:"notifications"`
}

// Defaults returns the settings used when no configuration file exists.
func Defaults() *Settings {
	return &Settings{
		ServiceCommand:        "twingate",
		NotifierCommand:       "twingate-notifier",
		ElevateCommand:        "pkexec",
		PollIntervalSeconds:   10,
		CommandTimeoutSeconds: 5,
		Notifications:         true,
	}
}

// PollInterval returns the refresh cadence as a duration.
func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// CommandTimeout returns the per-command timeout as a duration.
func (s *Settings) CommandTimeout() time.Duration {
	return time.Duration(s.CommandTimeoutSeconds) * time.Second
}

func (s *Settings) normalize() {
	defaults := Defaults()
	if s.ServiceCommand == "" {
		s.ServiceCommand = defaults.ServiceCommand
	}
	if s.NotifierCommand == "" {
		s.NotifierCommand = defaults.NotifierCommand
	}
	if s.ElevateCommand == "" {
		s.ElevateCommand = defaults.ElevateCommand
	}
	if s.PollIntervalSeconds <= 0 {
		s.PollIntervalSeconds = defaults.PollIntervalSeconds
	}
	if s.CommandTimeoutSeconds <= 0 {
		s.CommandTimeoutSeconds = defaults.CommandTimeoutSeconds
	}
}

// Path returns the resolved configuration file path.
func Path() (string, error) {
	if custom := os.Getenv("TWINTRAY_CONFIG_PATH"); custom != "" {
		if err := os.MkdirAll(filepath.Dir(custom), 0o700); err != nil {
			return "", fmt.Errorf("ensure custom config directory: %w", err)
		}
		return custom, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determine user config dir: %w", err)
	}

	dir := filepath.Join(base, configDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("ensure config directory: %w", err)
	}

	return filepath.Join(dir, configFileName), nil
}

// Load retrieves the encrypted configuration using the provided passphrase.
// A missing file yields the defaults.
func Load(passphrase string) (*Settings, error) {
	if passphrase == "" {
		return nil, errors.New("missing passphrase for configuration decryption")
	}

	path, err := Path()
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data, err := decrypt(raw, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt config: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	settings.normalize()
	return &settings, nil
}

// Save persists the configuration encrypted with the provided passphrase.
func Save(settings *Settings, passphrase string) error {
	if passphrase == "" {
		return errors.New("missing passphrase for configuration encryption")
	}

	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	data, err := encrypt(raw, passphrase)
	if err != nil {
		return fmt.Errorf("encrypt config: %w", err)
	}

	path, err := Path()
	if err != nil {
		return err
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("write encrypted config: %w", err)
	}

	return os.Rename(tempFile, path)
}

func encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, saltSize+nonceSize+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

func decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	if len(ciphertext) < saltSize+nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	salt := ciphertext[:saltSize]
	nonce := ciphertext[saltSize : saltSize+nonceSize]
	payload := ciphertext[saltSize+nonceSize:]

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return gcm.Open(nil, nonce, payload, nil)
}

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	const (
		keyLength = 32
		n         = 1 << 15
		r         = 8
		p         = 1
	)

	key, err := scrypt.Key([]byte(passphrase), salt, n, r, p, keyLength)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
