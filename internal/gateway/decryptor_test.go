package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecryptor_EmptyKeyPassesThrough(t *testing.T) {
	d := NewDecryptor("ffmpeg", nil, nil)

	data := []byte("unencrypted payload")
	out, err := d.Decrypt(context.Background(), "chan1", "https://example.com/seg.m4s", data, "")

	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestDecryptor_InvalidHexKeyReturnsDecryptError(t *testing.T) {
	d := NewDecryptor("ffmpeg", nil, nil)

	_, err := d.Decrypt(context.Background(), "chan1", "https://example.com/seg.m4s", []byte("x"), "not-hex")

	require.Error(t, err)
	var decErr *DecryptError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "chan1", decErr.StreamID)
}

type recordingActivity struct {
	kind   string
	detail string
}

func (r *recordingActivity) Record(_ context.Context, _, kind, detail string) {
	r.kind = kind
	r.detail = detail
}

func TestDecryptor_PassthroughRecordsActivity(t *testing.T) {
	rec := &recordingActivity{}
	d := NewDecryptor("/nonexistent-ffmpeg-binary-for-test", nil, rec)

	data := []byte{0x00, 0x01, 0x02}
	out, err := d.Decrypt(context.Background(), "chan1", "https://example.com/seg.m4s", data, "00112233445566778899aabbccddeeff")

	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.Equal(t, "pipeline_error", rec.kind)
}
