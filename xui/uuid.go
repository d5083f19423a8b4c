package xui

import "github.com/google/uuid"

// NewClientID генерирует идентификатор клиента. Идентификатор одновременно является
// учетными данными VPN, поэтому используется UUIDv4 на crypto/rand.
func NewClientID() string {
	return uuid.NewString()
}
