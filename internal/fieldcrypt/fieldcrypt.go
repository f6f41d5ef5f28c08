// Package fieldcrypt protects individual record fields at rest. It offers
// one capability — encrypt a string, get it back later — behind two
// interchangeable backends: a local AES key and AWS KMS. Bulk wrappers
// apply the capability to named fields of stored records.
package fieldcrypt

import "context"

// Encryptor is the single-value encryption capability. Implementations
// own their key material for their lifetime; key material never crosses
// this boundary in either direction.
type Encryptor interface {
	// Encrypt returns an opaque base64 blob for a non-empty plaintext.
	// Encrypting the same plaintext twice yields different blobs.
	Encrypt(ctx context.Context, plaintext string) (string, error)

	// Decrypt inverts Encrypt. Decrypting with the wrong key or a
	// malformed blob fails loudly; it never silently returns wrong
	// plaintext.
	Decrypt(ctx context.Context, blob string) (string, error)
}
