package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	shttp "github.com/artpar/shapewire/adapters/http"
	"github.com/artpar/shapewire/domain/transport"
)

func TestClient_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.EscapedPath() != "/v1/items/a%20b" {
			t.Errorf("path = %s, want /v1/items/a%%20b", r.URL.EscapedPath())
		}
		if got := r.URL.Query()["tag"]; len(got) != 2 || got[0] != "x" || got[1] != "y" {
			t.Errorf("tag query = %v, want [x y]", got)
		}
		if got := r.Header.Get("X-Trace"); got != "t1" {
			t.Errorf("X-Trace = %q, want t1", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "hello" {
			t.Errorf("body = %q, want hello", body)
		}
		w.Header().Add("X-Multi", "a")
		w.Header().Add("X-Multi", "b")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, "done")
	}))
	defer srv.Close()

	ep, err := transport.ParseEndpoint(srv.URL + "/v1")
	if err != nil {
		t.Fatal(err)
	}
	req := transport.NewRequest()
	req.Method = "POST"
	req.Protocol = ep.URL.Protocol
	req.Hostname = ep.URL.Hostname
	req.Port = ep.URL.Port
	req.Path = ep.URL.Path + "/items/a%20b"
	req.SetQuery("tag", "x", "y")
	req.Headers["x-trace"] = "t1"
	req.Body = []byte("hello")

	c := shttp.NewClient(shttp.ClientConfig{Timeout: 5 * time.Second})
	defer c.Close()

	resp, err := c.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	defer resp.Body.(io.Closer).Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("StatusCode = %d, want 202", resp.StatusCode)
	}
	if got := resp.Headers["x-multi"]; got != "a, b" {
		t.Errorf("x-multi = %q, want \"a, b\"", got)
	}
	if _, ok := resp.Headers["connection"]; ok {
		t.Error("hop-by-hop header was kept")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "done" {
		t.Errorf("body = %q, want done", body)
	}
}

func TestClient_SendStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	ep, _ := transport.ParseEndpoint(srv.URL)
	req := transport.NewRequest()
	req.Method = "PUT"
	req.Protocol, req.Hostname, req.Port = ep.URL.Protocol, ep.URL.Hostname, ep.URL.Port
	req.Stream = strings.NewReader("streamed payload")

	resp, err := shttp.NewClient(shttp.ClientConfig{}).Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "streamed payload" {
		t.Errorf("echoed body = %q", body)
	}
}

func TestClient_SendCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ep, _ := transport.ParseEndpoint(srv.URL)
	req := transport.NewRequest()
	req.Protocol, req.Hostname, req.Port = ep.URL.Protocol, ep.URL.Hostname, ep.URL.Port

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := shttp.NewClient(shttp.ClientConfig{}).Send(ctx, req); err == nil {
		t.Error("Send() with canceled context returned no error")
	}
}
