package polyserv

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialFeed(t *testing.T, url string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http") + "/ws/translations"
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func TestFeedReceivesTranslations(t *testing.T) {
	s, _ := newTestServer(Config{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := dialFeed(t, ts.URL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Hub().Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("targetLang", "ja"))
	fw, err := mw.CreateFormFile("audio", "clip.wav")
	require.NoError(t, err)
	fw.Write([]byte("hello feed"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/translate", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(requestIDHeader, "feed-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var event struct {
		Type      string      `json:"type"`
		ID        string      `json:"id"`
		Timestamp time.Time   `json:"timestamp"`
		Payload   Translation `json:"payload"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, "translation", event.Type)
	assert.Equal(t, "feed-1", event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, Translation{Original: "hello feed", Translated: "[ja] hello feed", DetectedLang: "en"}, event.Payload)
}

func TestFeedDisconnects(t *testing.T) {
	hub := NewHub(nil)
	ts := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)

	conn, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Subscribers())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	hub.Publish("translation", "after-close", nil)
}

func TestFeedOriginCheck(t *testing.T) {
	s, _ := newTestServer(Config{AllowedOrigins: []string{"https://app.example.com"}})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := dialFeed(t, ts.URL, http.Header{"Origin": {"https://app.example.com"}})
	require.NoError(t, err)
	conn.Close()

	_, resp, err := dialFeed(t, ts.URL, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	assert.Nil(t, OriginChecker(nil))

	all := OriginChecker([]string{"https://a.example", "*"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://whatever.example")
	assert.True(t, all(req))

	strict := OriginChecker([]string{"https://a.example"})
	assert.False(t, strict(req))
	req.Header.Set("Origin", "https://A.example")
	assert.True(t, strict(req))
	req.Header.Del("Origin")
	assert.True(t, strict(req))
}
