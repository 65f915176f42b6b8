package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newWSServer answers each command with respond(cmd).
func newWSServer(t *testing.T, respond func(cmd map[string]interface{}) map[string]interface{}) (*httptest.Server, string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var cmd map[string]interface{}
			if err := json.Unmarshal(msg, &cmd); err != nil {
				t.Errorf("unmarshal command: %v", err)
				return
			}
			resp := respond(cmd)
			if resp == nil {
				continue
			}
			resp["id"] = cmd["id"]
			if err := c.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	return server, "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_AccountTx(t *testing.T) {
	server, wsURL := newWSServer(t, func(cmd map[string]interface{}) map[string]interface{} {
		if cmd["command"] != "account_tx" {
			t.Errorf("expected account_tx, got %v", cmd["command"])
		}
		if cmd["account"] != "rAlice" {
			t.Errorf("expected flattened account param, got %v", cmd["account"])
		}
		return map[string]interface{}{
			"status": "success",
			"type":   "response",
			"result": map[string]interface{}{
				"account": "rAlice",
				"marker":  "abc",
				"transactions": []map[string]interface{}{
					{"tx_json": map[string]interface{}{"TransactionType": "Payment"}, "hash": "H1"},
				},
			},
		}
	})
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	result, err := client.AccountTx(context.Background(), NewAccountTxRequest("rAlice", 5, nil))
	if err != nil {
		t.Fatalf("AccountTx: %v", err)
	}
	if len(result.Transactions) != 1 || result.Transactions[0].Hash != "H1" {
		t.Errorf("unexpected transactions: %+v", result.Transactions)
	}
	if !result.HasMore() {
		t.Error("expected marker")
	}
}

func TestWSClient_ErrorResponse(t *testing.T) {
	server, wsURL := newWSServer(t, func(cmd map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{
			"status":        "error",
			"type":          "response",
			"error":         "actMalformed",
			"error_message": "Account malformed.",
		}
	})
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	_, err = client.AccountTx(context.Background(), NewAccountTxRequest("bad", 5, nil))
	var rpcErr *rpcError
	if !errors.As(err, &rpcErr) || rpcErr.Code != "actMalformed" {
		t.Fatalf("expected actMalformed, got %v", err)
	}
}

func TestWSClient_IgnoresStreamMessages(t *testing.T) {
	server, wsURL := newWSServer(t, func(cmd map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{
			"status": "success",
			"type":   "response",
			"result": map[string]interface{}{"account": "rAlice"},
		}
	})
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	client.handleMessage([]byte(`{"type":"ledgerClosed","ledger_index":5}`))

	if _, err := client.AccountTx(context.Background(), NewAccountTxRequest("rAlice", 5, nil)); err != nil {
		t.Fatalf("AccountTx: %v", err)
	}
}

func TestWSClient_RequestTimeout(t *testing.T) {
	server, wsURL := newWSServer(t, func(cmd map[string]interface{}) map[string]interface{} {
		return nil
	})
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.RequestTimeout = 50 * time.Millisecond
	client, err := NewWSClient(context.Background(), wsURL, &cfg)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if _, err := client.AccountTx(context.Background(), NewAccountTxRequest("rAlice", 5, nil)); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestWSClient_CommandAfterClose(t *testing.T) {
	server, wsURL := newWSServer(t, func(cmd map[string]interface{}) map[string]interface{} {
		return nil
	})
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	_, err = client.AccountTx(context.Background(), NewAccountTxRequest("rAlice", 5, nil))
	if !errors.Is(err, ErrClientClosed) {
		t.Errorf("expected ErrClientClosed, got %v", err)
	}
}

func TestCommandMessage(t *testing.T) {
	msg, err := commandMessage("account_tx", 7, NewAccountTxRequest("rAlice", 10, json.RawMessage(`"m1"`)))
	if err != nil {
		t.Fatalf("commandMessage: %v", err)
	}
	if msg["id"] != uint64(7) || msg["command"] != "account_tx" {
		t.Errorf("unexpected envelope: %v", msg)
	}
	if msg["marker"] != "m1" {
		t.Errorf("expected marker m1, got %v", msg["marker"])
	}
	if msg["limit"] != float64(10) {
		t.Errorf("expected limit 10, got %v", msg["limit"])
	}
}
