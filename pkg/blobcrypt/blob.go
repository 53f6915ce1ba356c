package blobcrypt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Blob is the self-contained result of one encryption: the IV used, the
// ciphertext, the GCM authentication tag and the AAD string that was bound
// into the tag. An empty AAD marks a blob written before AAD versioning.
type Blob struct {
	IV         []byte
	Ciphertext []byte
	Tag        []byte
	AAD        string
}

// blobJSON is the persisted wire shape. All binary fields are standard
// base64; aad is omitted entirely on legacy blobs rather than serialized
// empty, so old and new records stay byte-compatible.
type blobJSON struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"encrypted"`
	Tag        string `json:"tag"`
	AAD        string `json:"aad,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (b Blob) MarshalJSON() ([]byte, error) {
	out := blobJSON{
		IV:         base64.StdEncoding.EncodeToString(b.IV),
		Ciphertext: base64.StdEncoding.EncodeToString(b.Ciphertext),
		Tag:        base64.StdEncoding.EncodeToString(b.Tag),
	}
	if b.AAD != "" {
		out.AAD = base64.StdEncoding.EncodeToString([]byte(b.AAD))
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Blob) UnmarshalJSON(data []byte) error {
	var in blobJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Join(ErrInvalidBlob, err)
	}

	iv, err := base64.StdEncoding.DecodeString(in.IV)
	if err != nil {
		return errors.Join(ErrInvalidBlob, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(in.Ciphertext)
	if err != nil {
		return errors.Join(ErrInvalidBlob, err)
	}
	tag, err := base64.StdEncoding.DecodeString(in.Tag)
	if err != nil {
		return errors.Join(ErrInvalidBlob, err)
	}

	var aad string
	if in.AAD != "" {
		raw, err := base64.StdEncoding.DecodeString(in.AAD)
		if err != nil {
			return errors.Join(ErrInvalidBlob, err)
		}
		aad = string(raw)
	}

	*b = Blob{IV: iv, Ciphertext: ciphertext, Tag: tag, AAD: aad}
	return nil
}

// validate checks the field sizes a well-formed blob must have before the
// bytes are handed to the cipher.
func (b Blob) validate() error {
	if len(b.IV) != IVSize {
		return errors.Join(ErrInvalidBlob, errors.New("bad iv size"))
	}
	if len(b.Tag) != TagSize {
		return errors.Join(ErrInvalidBlob, errors.New("bad tag size"))
	}
	return nil
}
