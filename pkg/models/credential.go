package models

import "time"

// Platform identifies the external service a credential belongs to.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformResend   Platform = "resend"
	PlatformGemini   Platform = "gemini"
)

// Credential is a stored secret payload for one platform. The engine only
// reads credentials; creating and editing them belongs to the CRUD layer.
type Credential struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"    validate:"required"`
	Platform  Platform          `json:"platform" validate:"required"`
	Data      map[string]string `json:"data"     validate:"required"`
	CreatedAt time.Time         `json:"created_at"`
}

// Field returns a named secret field and whether it is present and
// non-empty.
func (c *Credential) Field(name string) (string, bool) {
	v, ok := c.Data[name]
	if !ok || v == "" {
		return "", false
	}

	return v, true
}
