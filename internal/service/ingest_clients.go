package service

import "strings"

// StaticIngestClients resolves ingest client secrets from configuration.
// Access keys are case-insensitive because configuration keys are lowercased on load.
type StaticIngestClients struct {
	secrets map[string]string
}

// NewStaticIngestClients copies clients, keyed by access key, into a lookup table.
// Values are encrypted secrets; empty values are ignored.
func NewStaticIngestClients(clients map[string]string) *StaticIngestClients {
	secrets := make(map[string]string, len(clients))
	for key, secretEnc := range clients {
		if secretEnc == "" {
			continue
		}
		secrets[strings.ToLower(key)] = secretEnc
	}
	return &StaticIngestClients{secrets: secrets}
}

// SecretFor returns the encrypted secret for accessKey.
func (c *StaticIngestClients) SecretFor(accessKey string) (string, bool) {
	secret, ok := c.secrets[strings.ToLower(accessKey)]
	return secret, ok
}
