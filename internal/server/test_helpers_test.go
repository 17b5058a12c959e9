package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"escape-rose/internal/config"
	"escape-rose/internal/game"
	"escape-rose/internal/session"
	"escape-rose/internal/store"

	"github.com/gin-gonic/gin"
)

type testEnv struct {
	ts   *httptest.Server
	srv  *Server
	repo *game.Repository
	feed *store.LocalFeed
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	feed := store.NewLocalFeed()
	repo := game.NewRepository(store.NewMemory(feed))
	cfg := config.Default()
	cfg.SessionSecret = "test-secret"
	cfg.SessionPollAttempts = 2
	cfg.SessionPollDelayMS = 10
	cookies, err := session.NewCookieCodec(cfg.SessionSecret, time.Hour)
	if err != nil {
		t.Fatalf("cookie codec: %v", err)
	}
	srv := New(repo, feed, cookies, cfg)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return &testEnv{ts: ts, srv: srv, repo: repo, feed: feed}
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

// testClient is one browser: it keeps its own cookies and never follows
// redirects.
type testClient struct {
	t      *testing.T
	env    *testEnv
	jar    *cookiejar.Jar
	client *http.Client
}

func (e *testEnv) newClient(t *testing.T) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testClient{
		t:   t,
		env: e,
		jar: jar,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *testClient) do(method, path string, payload any) *http.Response {
	c.t.Helper()
	var body io.Reader = bytes.NewReader(nil)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			c.t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.env.ts.URL+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("request failed: %v", err)
	}
	return resp
}

func (c *testClient) cookieHeader() http.Header {
	u, _ := url.Parse(c.env.ts.URL)
	header := http.Header{}
	for _, cookie := range c.jar.Cookies(u) {
		header.Add("Cookie", cookie.String())
	}
	return header
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, strings.TrimSpace(string(data)))
	}
}

type membership struct {
	RoomID   string
	Code     string
	PlayerID string
}

func membershipFrom(t *testing.T, body map[string]any) membership {
	t.Helper()
	room, ok := body["room"].(map[string]any)
	if !ok {
		t.Fatalf("expected room in %#v", body)
	}
	player, ok := body["player"].(map[string]any)
	if !ok {
		t.Fatalf("expected player in %#v", body)
	}
	return membership{
		RoomID:   room["id"].(string),
		Code:     room["code"].(string),
		PlayerID: player["id"].(string),
	}
}

func (c *testClient) createRoom(name string) membership {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/rooms", map[string]string{"name": name})
	expectStatus(c.t, resp, http.StatusCreated)
	return membershipFrom(c.t, decodeBody(c.t, resp))
}

func (c *testClient) joinRoom(code, name string) membership {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/rooms/join", map[string]string{"code": code, "name": name})
	expectStatus(c.t, resp, http.StatusOK)
	return membershipFrom(c.t, decodeBody(c.t, resp))
}

func (c *testClient) startGame(roomID string) {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/rooms/"+roomID+"/start", nil)
	expectStatus(c.t, resp, http.StatusOK)
	resp.Body.Close()
}
