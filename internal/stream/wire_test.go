package stream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, kindPCM, []byte{1, 2, 3, 4}))

	kind, payload, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, kindPCM, kind)
	assert.Equal(t, []byte{1, 2, 3, 4}, payload)
}

func TestReadFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, kindControl, nil))

	kind, payload, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, kindControl, kind)
	assert.Empty(t, payload)
}
