package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs_RoundTrip(t *testing.T) {
	for _, codec := range []Codec{NewJSONCodec(), NewMsgPackCodec()} {
		t.Run(codec.Name(), func(t *testing.T) {
			in := &Message{
				Ref:     "7",
				Topic:   "lv:abc",
				Event:   "change",
				Payload: map[string]any{"field": "email", "value": "jane@x.com"},
			}

			data, err := codec.Encode(in)
			require.NoError(t, err)

			out, err := codec.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, in.Ref, out.Ref)
			assert.Equal(t, in.Topic, out.Topic)
			assert.Equal(t, in.Event, out.Event)
			assert.Equal(t, "jane@x.com", out.String("value"))
			assert.Equal(t, "", out.String("missing"))
		})
	}
}

func TestCodecs_RejectGarbage(t *testing.T) {
	inputs := [][]byte{nil, []byte(`{malformed`), []byte(`{"topic":"x"}`)}
	for _, codec := range []Codec{NewJSONCodec(), NewMsgPackCodec()} {
		for _, data := range inputs {
			_, err := codec.Decode(data)
			assert.ErrorIs(t, err, ErrInvalidMessage, "%s %q", codec.Name(), data)
		}
	}
}

func TestLookup(t *testing.T) {
	c, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())
	assert.False(t, c.Binary())

	c, err = Lookup("msgpack")
	require.NoError(t, err)
	assert.True(t, c.Binary())

	_, err = Lookup("phoenix")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestReplies(t *testing.T) {
	ok := OkReply("1", "lv:x", map[string]any{"a": 1})
	assert.Equal(t, EventReply, ok.Event)
	assert.Equal(t, "1", ok.Ref)
	assert.Equal(t, StatusOK, ok.Payload["status"])

	bad := ErrorReply("2", "lv:x", "boom")
	assert.Equal(t, StatusError, bad.Payload["status"])
	assert.Equal(t, map[string]any{"reason": "boom"}, bad.Payload["response"])

	r := RenderMessage("lv:x", 3, "<p>hi</p>")
	assert.Equal(t, EventRender, r.Event)
	assert.Equal(t, uint64(3), r.Payload["v"])
	assert.NotZero(t, r.Timestamp)
}
