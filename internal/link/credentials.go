// internal/link/credentials.go
package link

import (
	"errors"
	"fmt"
)

// Radio field limits.
const (
	MaxSSIDLen     = 32
	MaxPasswordLen = 64
)

var (
	ErrSSIDEmpty       = errors.New("link: ssid is empty")
	ErrSSIDTooLong     = errors.New("link: ssid too long")
	ErrPasswordTooLong = errors.New("link: password too long")
)

// AuthMethod is the access point authentication scheme.
type AuthMethod int

const (
	AuthOpen AuthMethod = iota
	AuthWPA2Personal
)

func (a AuthMethod) String() string {
	switch a {
	case AuthOpen:
		return "open"
	case AuthWPA2Personal:
		return "wpa2-personal"
	default:
		return fmt.Sprintf("AuthMethod(%d)", int(a))
	}
}

// Credentials is the immutable link identity.
type Credentials struct {
	ssid     string
	password string
	auth     AuthMethod
}

// NewCredentials validates field lengths and derives the auth method:
// an empty password means an open network, never a pre-shared key.
func NewCredentials(ssid, password string) (Credentials, error) {
	if ssid == "" {
		return Credentials{}, ErrSSIDEmpty
	}
	if len(ssid) > MaxSSIDLen {
		return Credentials{}, fmt.Errorf("%w: %d bytes (max %d)", ErrSSIDTooLong, len(ssid), MaxSSIDLen)
	}
	if len(password) > MaxPasswordLen {
		return Credentials{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPasswordTooLong, len(password), MaxPasswordLen)
	}

	auth := AuthWPA2Personal
	if password == "" {
		auth = AuthOpen
	}
	return Credentials{ssid: ssid, password: password, auth: auth}, nil
}

func (c Credentials) SSID() string     { return c.ssid }
func (c Credentials) Auth() AuthMethod { return c.auth }

// ClientConfig is what gets applied to the radio.
type ClientConfig struct {
	SSID     string
	Password string
	Auth     AuthMethod
}

// ClientConfig builds the radio client configuration.
func (c Credentials) ClientConfig() ClientConfig {
	return ClientConfig{SSID: c.ssid, Password: c.password, Auth: c.auth}
}
