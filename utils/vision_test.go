package utils

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autostock/autostock-api/services"
)

func TestDecodeImagePayloadDataURI(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	subtype, data, err := decodeImagePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "png", subtype)
	assert.Equal(t, raw, data)
}

func TestDecodeImagePayloadBareBase64(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff}

	subtype, data, err := decodeImagePayload(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", subtype, "subtype defaults to jpeg without a data URI")
	assert.Equal(t, raw, data)
}

func TestDecodeImagePayloadMalformed(t *testing.T) {
	_, _, err := decodeImagePayload("data:image/png;base64")
	assert.Error(t, err, "data URI without a comma")

	_, _, err = decodeImagePayload("%%not-base64%%")
	assert.Error(t, err)
}

func TestClassifyGeminiError(t *testing.T) {
	cases := []struct {
		msg  string
		kind services.UpstreamKind
	}{
		{"googleapi: Error 429: Resource has been exhausted", services.UpstreamRateLimited},
		{"quota exceeded for quota metric", services.UpstreamRateLimited},
		{"API key not valid. Please pass a valid API key", services.UpstreamBadCredentials},
		{"googleapi: Error 400: Invalid argument", services.UpstreamInvalidInput},
		{"rpc error: code = Unavailable", services.UpstreamUnknown},
	}

	for _, tc := range cases {
		err := classifyGeminiError(fmt.Errorf("%s", tc.msg))

		var upstream *services.UpstreamError
		require.True(t, errors.As(err, &upstream), tc.msg)
		assert.Equal(t, tc.kind, upstream.Kind, tc.msg)
		assert.Equal(t, "gemini", upstream.Service)
	}
}

func TestGenerateImageDescriptionMissingKey(t *testing.T) {
	client := NewDescriptionClient("", "gemini-1.5-flash")

	_, err := client.GenerateImageDescription(context.Background(), "aGVsbG8=")

	var upstream *services.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, services.UpstreamBadCredentials, upstream.Kind)
}

func TestGenerateImageDescriptionBadPayload(t *testing.T) {
	client := NewDescriptionClient("key", "gemini-1.5-flash")

	_, err := client.GenerateImageDescription(context.Background(), "%%not-base64%%")

	var upstream *services.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, services.UpstreamInvalidInput, upstream.Kind)
}
