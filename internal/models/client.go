package models

import (
	"strings"
	"time"
)

// APIClient is an authenticated caller of the engine API, typically the
// web backend or an internal batch tool
type APIClient struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	APIKey      string     `json:"-"` // Never serialize
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	Permissions []string   `json:"permissions"`
}

// HasPermission checks if the client holds a permission.
// Supports wildcard permissions like "load:*" and the global "*".
func (c *APIClient) HasPermission(required string) bool {
	if c == nil || !c.IsActive {
		return false
	}

	for _, perm := range c.Permissions {
		if perm == required || perm == "*" {
			return true
		}

		if strings.HasSuffix(perm, ":*") {
			prefix := strings.TrimSuffix(perm, "*")
			if strings.HasPrefix(required, prefix) {
				return true
			}
		}
	}

	return false
}

// MaskedAPIKey returns the first 8 characters of the key for safe logging
func (c *APIClient) MaskedAPIKey() string {
	if len(c.APIKey) < 8 {
		return "***"
	}
	return c.APIKey[:8] + "..."
}
