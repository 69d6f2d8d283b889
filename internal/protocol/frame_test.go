package protocol_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/iamNilotpal/ember/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadSimple(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteSimple(&buf, "PING"))

	frame, err := protocol.ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeSimple, frame.Type)
	assert.Equal(t, "PING", frame.Text)
}

func TestWriteReadError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteError(&buf, "boom"))

	frame, err := protocol.ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeError, frame.Type)
	assert.Equal(t, "boom", frame.Text)
}

func TestWriteReadPut(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WritePut(&buf, []byte("k"), []byte("v")))

	frame, err := protocol.ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeBinary, frame.Type)
	assert.Equal(t, protocol.OpPut, frame.Op)
	assert.Equal(t, []byte("k"), frame.Key)
	assert.Equal(t, []byte("v"), frame.Value)
}

func TestWriteReadGetRoundTrip(t *testing.T) {
	var req bytes.Buffer
	require.NoError(t, protocol.WriteGetRequest(&req, []byte("k")))

	reqFrame, err := protocol.ReadFrame(bufio.NewReader(&req))
	require.NoError(t, err)
	assert.Equal(t, protocol.OpGet, reqFrame.Op)
	assert.Equal(t, []byte("k"), reqFrame.Key)
	assert.False(t, reqFrame.Present)

	var resp bytes.Buffer
	require.NoError(t, protocol.WriteGetResponse(&resp, []byte("k"), []byte("v"), true))

	respFrame, err := protocol.ReadFrame(bufio.NewReader(&resp))
	require.NoError(t, err)
	assert.True(t, respFrame.Present)
	assert.Equal(t, []byte("v"), respFrame.Value)
}

func TestWriteReadGetNotFoundDistinguishesFromEmptyValue(t *testing.T) {
	var notFound bytes.Buffer
	require.NoError(t, protocol.WriteGetResponse(&notFound, []byte("k"), nil, false))
	notFoundFrame, err := protocol.ReadFrame(bufio.NewReader(&notFound))
	require.NoError(t, err)
	assert.False(t, notFoundFrame.Present)
	assert.Empty(t, notFoundFrame.Value)

	var foundEmpty bytes.Buffer
	require.NoError(t, protocol.WriteGetResponse(&foundEmpty, []byte("k"), []byte{}, true))
	foundEmptyFrame, err := protocol.ReadFrame(bufio.NewReader(&foundEmpty))
	require.NoError(t, err)
	assert.True(t, foundEmptyFrame.Present)
	assert.Empty(t, foundEmptyFrame.Value)
}

func TestWriteReadRemove(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteRemove(&buf, []byte("k")))

	frame, err := protocol.ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, protocol.OpRemove, frame.Op)
	assert.Equal(t, []byte("k"), frame.Key)
}

func TestReadFrameRejectsUnknownTag(t *testing.T) {
	buf := bytes.NewBufferString("?garbage")
	_, err := protocol.ReadFrame(bufio.NewReader(buf))
	assert.Error(t, err)
}

func TestMultipleFramesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteSimple(&buf, "PING"))
	require.NoError(t, protocol.WritePut(&buf, []byte("a"), []byte("1")))
	require.NoError(t, protocol.WriteRemove(&buf, []byte("a")))

	r := bufio.NewReader(&buf)

	f1, err := protocol.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, "PING", f1.Text)

	f2, err := protocol.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, protocol.OpPut, f2.Op)

	f3, err := protocol.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, protocol.OpRemove, f3.Op)
}
