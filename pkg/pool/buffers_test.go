package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffers(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("hello")
	PutBuffer(buf)

	again := GetBuffer()
	assert.Zero(t, again.Len())
	PutBuffer(again)

	big := bytes.NewBuffer(make([]byte, 0, maxPooled+1))
	PutBuffer(big)
	PutBuffer(nil)
}
