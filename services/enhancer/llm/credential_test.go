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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredential_OpenRoundTrip(t *testing.T) {
	cred := NewCredential("sk-test-value")
	require.NotNil(t, cred)

	buf, err := cred.Open()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-value", buf.String())
	buf.Destroy()

	// The enclave survives a destroyed view; a second call works.
	buf, err = cred.Open()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-value", buf.String())
	buf.Destroy()
}

func TestCredential_EmptySecretIsNil(t *testing.T) {
	assert.Nil(t, NewCredential(""))
}

func TestCredential_NilOpenIsAuthError(t *testing.T) {
	var cred *Credential
	_, err := cred.Open()
	require.ErrorIs(t, err, ErrAuth)
}

func TestCredentialFromEnv(t *testing.T) {
	t.Setenv("NOTESMITH_TEST_KEY_A", "")
	t.Setenv("NOTESMITH_TEST_KEY_B", "from-b")

	cred := CredentialFromEnv("NOTESMITH_TEST_KEY_A", "NOTESMITH_TEST_KEY_B")
	require.NotNil(t, cred)
	buf, err := cred.Open()
	require.NoError(t, err)
	assert.Equal(t, "from-b", buf.String())
	buf.Destroy()

	assert.Nil(t, CredentialFromEnv("NOTESMITH_TEST_KEY_A"), "absence is not an error at startup")
}
