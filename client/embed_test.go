package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileNames(t *testing.T) {
	assert.ElementsMatch(t, []string{"kudos.css", "kudos.js"}, FileNames())
}

func TestGetFile(t *testing.T) {
	js, err := GetFile("kudos.js")
	require.NoError(t, err)
	for _, want := range []string{"phx_join", "heartbeat", "lv-click", "lv-change", "vsn="} {
		assert.Contains(t, string(js), want)
	}

	_, err = GetFile("missing.js")
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/kudos.css")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
	assert.Contains(t, string(body), "@keyframes kudos-bounce")
}
