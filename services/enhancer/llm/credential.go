// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
)

// Credential holds an API key in a sealed memguard enclave so the
// plaintext never sits in ordinary heap memory between requests.
// Providers open it per call and destroy the view immediately after.
type Credential struct {
	enclave *memguard.Enclave
}

// NewCredential seals a secret. The caller's string is not wiped (Go
// strings are immutable); prefer CredentialFromEnv which reads the
// value exactly once.
func NewCredential(secret string) *Credential {
	if secret == "" {
		return nil
	}
	return &Credential{enclave: memguard.NewEnclave([]byte(secret))}
}

// CredentialFromEnv returns a credential from the first non-empty
// environment variable, or nil when none is set. Absence is not an
// error here: startup must not require a credential, and providers
// surface ErrAuth on the first remote call instead.
func CredentialFromEnv(vars ...string) *Credential {
	for _, v := range vars {
		if val := os.Getenv(v); val != "" {
			return NewCredential(val)
		}
	}
	return nil
}

// Open returns a locked view of the secret. The caller must call
// Destroy on the returned buffer as soon as the secret has been used.
func (c *Credential) Open() (*memguard.LockedBuffer, error) {
	if c == nil || c.enclave == nil {
		return nil, fmt.Errorf("%w: no credential configured", ErrAuth)
	}
	buf, err := c.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening credential enclave: %v", ErrAuth, err)
	}
	return buf, nil
}
