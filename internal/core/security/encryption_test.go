package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesaflow/remit/internal/core/security"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := security.GenerateMasterKey()
	require.NoError(t, err)

	crypt, err := security.NewEncryption(key)
	require.NoError(t, err)

	seed := "SDJHRQF4GCMIIKAAAQ6IHY42X73FQFLHUULAPSKKD4DFDM7UXWWCRHBE"

	ciphertext, err := crypt.Encrypt(seed)
	require.NoError(t, err)
	assert.NotEqual(t, seed, ciphertext)

	plaintext, err := crypt.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, seed, plaintext)
}

func TestEncryptProducesFreshCiphertext(t *testing.T) {
	key, err := security.GenerateMasterKey()
	require.NoError(t, err)

	crypt, err := security.NewEncryption(key)
	require.NoError(t, err)

	first, err := crypt.Encrypt("same input")
	require.NoError(t, err)
	second, err := crypt.Encrypt("same input")
	require.NoError(t, err)

	// Random nonces mean identical plaintexts never share ciphertext.
	assert.NotEqual(t, first, second)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	keyA, err := security.GenerateMasterKey()
	require.NoError(t, err)
	keyB, err := security.GenerateMasterKey()
	require.NoError(t, err)

	cryptA, err := security.NewEncryption(keyA)
	require.NoError(t, err)
	cryptB, err := security.NewEncryption(keyB)
	require.NoError(t, err)

	ciphertext, err := cryptA.Encrypt("secret seed")
	require.NoError(t, err)

	_, err = cryptB.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestNewEncryptionRejectsShortKey(t *testing.T) {
	_, err := security.NewEncryption("too-short")
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	key, err := security.GenerateMasterKey()
	require.NoError(t, err)

	crypt, err := security.NewEncryption(key)
	require.NoError(t, err)

	_, err = crypt.Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = crypt.Decrypt("")
	assert.Error(t, err)
}
