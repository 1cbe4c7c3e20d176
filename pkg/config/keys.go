package config

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Version is the SDK version reported in the default User-Agent
const Version = "0.4.0"

const (
	// TestKeyPrefix marks publishable keys of development instances
	TestKeyPrefix = "pk_test_"
	// LiveKeyPrefix marks publishable keys of production instances
	LiveKeyPrefix = "pk_live_"

	defaultStoreKeyPrefix = ""
	defaultUserAgent      = "clerk-fapi-go/" + Version
)

// InstanceType identifies the kind of instance a publishable key belongs to
type InstanceType string

const (
	InstanceTypeDevelopment InstanceType = "development"
	InstanceTypeProduction  InstanceType = "production"
)

// PublishableKey is a decoded publishable key. The payload after the
// pk_test_/pk_live_ prefix is base64 and decodes to the instance's
// Frontend API domain terminated by '$'.
type PublishableKey struct {
	Raw      string
	Instance InstanceType
	Domain   string
}

// ParsePublishableKey validates and decodes a publishable key
func ParsePublishableKey(raw string) (*PublishableKey, error) {
	var instance InstanceType
	var payload string

	switch {
	case strings.HasPrefix(raw, TestKeyPrefix):
		instance = InstanceTypeDevelopment
		payload = strings.TrimPrefix(raw, TestKeyPrefix)
	case strings.HasPrefix(raw, LiveKeyPrefix):
		instance = InstanceTypeProduction
		payload = strings.TrimPrefix(raw, LiveKeyPrefix)
	default:
		return nil, fmt.Errorf("publishable key must start with %q or %q", TestKeyPrefix, LiveKeyPrefix)
	}

	if payload == "" {
		return nil, fmt.Errorf("publishable key has no payload")
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Keys issued without padding still decode with the raw encoding
		decoded, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode publishable key payload: %w", err)
		}
	}

	domain := string(decoded)
	if !strings.HasSuffix(domain, "$") {
		return nil, fmt.Errorf("publishable key payload is not terminated")
	}
	domain = strings.TrimSuffix(domain, "$")
	if domain == "" {
		return nil, fmt.Errorf("publishable key payload holds no domain")
	}

	return &PublishableKey{
		Raw:      raw,
		Instance: instance,
		Domain:   domain,
	}, nil
}

// FrontendAPIURL returns the versioned base URL for the instance's
// Frontend API
func (k *PublishableKey) FrontendAPIURL() string {
	return "https://" + k.Domain + "/v1"
}

// IsDevelopment reports whether the key belongs to a development instance
func (k *PublishableKey) IsDevelopment() bool {
	return k.Instance == InstanceTypeDevelopment
}

// ValidateKeyFormat checks a publishable key without returning the decoded
// form
func ValidateKeyFormat(raw string) error {
	_, err := ParsePublishableKey(raw)
	return err
}
