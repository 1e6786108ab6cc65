package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/chatschnell/internal/config"
	"github.com/codefionn/chatschnell/internal/orchestrator"
	"github.com/codefionn/chatschnell/internal/snapshot"
)

func newTestClient(hub *Hub, id string) *Client {
	return &Client{
		ID:   id,
		hub:  hub,
		send: make(chan *WebMessage, 16),
	}
}

func recv(t *testing.T, c *Client) *WebMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestMessengerRoutesToOwningConversation(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	alice := newTestClient(hub, "conv-a")
	bob := newTestClient(hub, "conv-b")
	hub.Register(alice)
	hub.Register(bob)

	m := NewMessenger(hub)
	state := &snapshot.Rendered{Status: "thinking", Prompt: "hello"}

	handle, err := m.CreateMessage(context.Background(), "conv-a", state)
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	msg := recv(t, alice)
	if msg.Type != MessageTypeTask {
		t.Errorf("expected task frame, got %s", msg.Type)
	}
	if msg.MessageID == "" {
		t.Error("task frame missing message id")
	}
	if msg.State == nil || msg.State.Prompt != "hello" {
		t.Errorf("unexpected state: %+v", msg.State)
	}

	if err := m.UpdateMessage(context.Background(), handle, &snapshot.Rendered{Status: "running"}); err != nil {
		t.Fatalf("UpdateMessage failed: %v", err)
	}
	update := recv(t, alice)
	if update.MessageID != msg.MessageID {
		t.Errorf("update used id %s, create used %s", update.MessageID, msg.MessageID)
	}

	select {
	case stray := <-bob.send:
		t.Errorf("other conversation received frame: %+v", stray)
	default:
	}
}

func TestMessengerWithoutClientFails(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	m := NewMessenger(hub)
	if _, err := m.CreateMessage(context.Background(), "nobody", &snapshot.Rendered{}); err == nil {
		t.Fatal("expected error for conversation without client")
	}
	if err := m.UpdateMessage(context.Background(), "nobody/m1", &snapshot.Rendered{}); err == nil {
		t.Fatal("expected error for update without client")
	}
}

func TestSendFileDeliversBase64(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := newTestClient(hub, "conv")
	hub.Register(client)

	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("artifact body"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewMessenger(hub)
	if err := m.SendFile(context.Background(), "conv", path); err != nil {
		t.Fatalf("SendFile failed: %v", err)
	}

	msg := recv(t, client)
	if msg.Type != MessageTypeFile || msg.FileName != "report.txt" {
		t.Errorf("unexpected file frame: type=%s name=%s", msg.Type, msg.FileName)
	}
	data, err := base64.StdEncoding.DecodeString(msg.FileData)
	if err != nil {
		t.Fatalf("file data is not base64: %v", err)
	}
	if string(data) != "artifact body" {
		t.Errorf("unexpected file body %q", data)
	}
}

func TestSendFileMissingPath(t *testing.T) {
	hub := NewHub()
	m := NewMessenger(hub)
	if err := m.SendFile(context.Background(), "conv", "/does/not/exist.bin"); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestRegisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		late := newTestClient(hub, "late")
		hub.Register(late)
		hub.Unregister(late)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Register blocked after hub stop")
	}
}

func TestSplitHandle(t *testing.T) {
	conv, msg, err := splitHandle("conv-a/m7")
	if err != nil || conv != "conv-a" || msg != "m7" {
		t.Errorf("splitHandle: conv=%s msg=%s err=%v", conv, msg, err)
	}
	if _, _, err := splitHandle("nodelimiter"); err == nil {
		t.Error("expected error for malformed handle")
	}
}

func TestStatusEndpointRequiresToken(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WorkingDir = t.TempDir()

	hub := NewHub()
	messenger := NewMessenger(hub)
	orch := orchestrator.New(cfg, nil, messenger)
	defer orch.Shutdown()

	srv, err := NewServer(cfg, hub, messenger, orch)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	router := httprouter.New()
	router.GET("/healthz", srv.handleHealth)
	router.GET("/api/status", srv.requireToken(srv.handleStatus))
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/status?token=wrong")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/status?token=" + srv.authToken)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}

	var info StatusInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if info.ActiveTasks != 0 {
		t.Errorf("expected no active tasks, got %d", info.ActiveTasks)
	}
}
