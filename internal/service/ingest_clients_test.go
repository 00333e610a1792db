package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticIngestClients_SecretFor(t *testing.T) {
	clients := NewStaticIngestClients(map[string]string{
		"billing":  "enc-billing",
		"Accounts": "enc-accounts",
		"disabled": "",
	})

	secret, ok := clients.SecretFor("billing")
	assert.True(t, ok)
	assert.Equal(t, "enc-billing", secret)

	secret, ok = clients.SecretFor("ACCOUNTS")
	assert.True(t, ok)
	assert.Equal(t, "enc-accounts", secret)

	_, ok = clients.SecretFor("disabled")
	assert.False(t, ok)

	_, ok = clients.SecretFor("unknown")
	assert.False(t, ok)
}
