package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidPasswordHash reports a stored credential that cannot be parsed
// back into argon2id parameters.
var ErrInvalidPasswordHash = errors.New("malformed password hash")

// argonParams fixes the argon2id cost for newly hashed credentials.
// Verification reads the cost back out of the stored hash, so raising these
// later does not invalidate existing accounts.
type argonParams struct {
	memoryKiB uint32
	passes    uint32
	lanes     uint8
	saltBytes uint32
	keyBytes  uint32
}

// Sized for interactive sign-in latency on a shared campus host.
var signInHashParams = argonParams{
	memoryKiB: 64 * 1024,
	passes:    3,
	lanes:     2,
	saltBytes: 16,
	keyBytes:  32,
}

// HashPassword derives an argon2id digest from the password and encodes it in
// the portable $argon2id$v=19$m=..,t=..,p=..$salt$digest form.
func HashPassword(password string) (string, error) {
	salt := make([]byte, signInHashParams.saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt,
		signInHashParams.passes, signInHashParams.memoryKiB, signInHashParams.lanes,
		signInHashParams.keyBytes)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		signInHashParams.memoryKiB, signInHashParams.passes, signInHashParams.lanes,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest)), nil
}

// VerifyPassword recomputes the digest with the parameters embedded in the
// stored hash and compares in constant time. A mismatched password returns
// ErrInvalidCredentials; anything unparseable returns ErrInvalidPasswordHash.
func VerifyPassword(stored, password string) error {
	params, salt, digest, err := decodePasswordHash(stored)
	if err != nil {
		return err
	}

	candidate := argon2.IDKey([]byte(password), salt,
		params.passes, params.memoryKiB, params.lanes, params.keyBytes)
	if subtle.ConstantTimeCompare(candidate, digest) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

func decodePasswordHash(stored string) (argonParams, []byte, []byte, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return argonParams{}, nil, nil, ErrInvalidPasswordHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonParams{}, nil, nil, ErrInvalidPasswordHash
	}

	var params argonParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.memoryKiB, &params.passes, &params.lanes); err != nil {
		return argonParams{}, nil, nil, ErrInvalidPasswordHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argonParams{}, nil, nil, ErrInvalidPasswordHash
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argonParams{}, nil, nil, ErrInvalidPasswordHash
	}
	params.saltBytes = uint32(len(salt))
	params.keyBytes = uint32(len(digest))

	return params, salt, digest, nil
}
