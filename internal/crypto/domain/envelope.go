// Package domain defines the core cryptographic domain models for field-level
// encryption: the versioned ciphertext envelope, the encryption key entity and
// its in-memory chain, and the error taxonomy shared by every crypto component.
package domain

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// EnvelopePrefix marks a stored string as an encryption envelope. The prefix
// check is how the whole system distinguishes ciphertext from legacy plaintext,
// so it must never collide with plausible field values.
const EnvelopePrefix = "fv:"

// EnvelopeVersion is the envelope format version written by this codec.
const EnvelopeVersion = 1

// envelopeSegments is the minimum number of colon-delimited segments in a
// valid envelope: prefix, version, iv, tag, ciphertext. The key id segment
// is optional (legacy envelopes omit it).
const envelopeSegments = 5

// Envelope is the self-describing encoding stored in place of plaintext.
//
// Wire format: "fv:v<version>:<b64 iv>:<b64 tag>:<b64 ciphertext>[:<key id>]".
// The auth tag segment is empty for deterministic-mode ciphertext. Key ids may
// themselves contain colons (deterministic ids are "det:<scope>"), so the key
// id is always the joined remainder after the ciphertext segment.
type Envelope struct {
	Version    int
	IV         []byte
	AuthTag    []byte // empty in deterministic mode
	Ciphertext []byte
	KeyID      string // empty for legacy envelopes encrypted under the master key
}

// Encode serializes the envelope into its transport string.
func (e Envelope) Encode() string {
	var b strings.Builder
	b.WriteString(EnvelopePrefix)
	b.WriteString("v")
	b.WriteString(strconv.Itoa(e.Version))
	b.WriteString(":")
	b.WriteString(base64.StdEncoding.EncodeToString(e.IV))
	b.WriteString(":")
	b.WriteString(base64.StdEncoding.EncodeToString(e.AuthTag))
	b.WriteString(":")
	b.WriteString(base64.StdEncoding.EncodeToString(e.Ciphertext))
	if e.KeyID != "" {
		b.WriteString(":")
		b.WriteString(e.KeyID)
	}
	return b.String()
}

// DecodeEnvelope parses a transport string into an Envelope.
// Returns ErrMalformedEnvelope if the prefix is missing, fewer than the
// minimum number of segments are present, the version segment is not of the
// form "v<n>", or a binary segment is not valid base64.
func DecodeEnvelope(value string) (Envelope, error) {
	if !IsEncoded(value) {
		return Envelope{}, fmt.Errorf("%w: missing prefix", ErrMalformedEnvelope)
	}

	parts := strings.Split(value, ":")
	if len(parts) < envelopeSegments {
		return Envelope{}, fmt.Errorf(
			"%w: expected at least %d segments, got %d",
			ErrMalformedEnvelope, envelopeSegments, len(parts),
		)
	}

	versionStr, ok := strings.CutPrefix(parts[1], "v")
	if !ok {
		return Envelope{}, fmt.Errorf("%w: invalid version segment %q", ErrMalformedEnvelope, parts[1])
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: invalid version segment %q", ErrMalformedEnvelope, parts[1])
	}

	iv, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: invalid iv encoding", ErrMalformedEnvelope)
	}
	tag, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: invalid auth tag encoding", ErrMalformedEnvelope)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: invalid ciphertext encoding", ErrMalformedEnvelope)
	}

	// Key ids can contain colons, so everything after the ciphertext segment
	// belongs to the key id.
	keyID := ""
	if len(parts) > envelopeSegments {
		keyID = strings.Join(parts[envelopeSegments:], ":")
	}

	return Envelope{
		Version:    version,
		IV:         iv,
		AuthTag:    tag,
		Ciphertext: ciphertext,
		KeyID:      keyID,
	}, nil
}

// IsEncoded reports whether the value carries the envelope prefix. It is a
// cheap probe used pervasively to tell ciphertext apart from legacy plaintext
// without attempting a full decode; it never fails.
func IsEncoded(value string) bool {
	return strings.HasPrefix(value, EnvelopePrefix)
}
