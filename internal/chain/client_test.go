package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// rpcStub serves canned JSON-RPC results keyed by method name.
type rpcStub struct {
	results map[string]string
	errors  map[string]*RPCError
	calls   []string
}

func (s *rpcStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.calls = append(s.calls, req.Method)

		resp := RPCResponse{JSONRPC: "2.0", ID: req.ID}
		if rpcErr, ok := s.errors[req.Method]; ok {
			resp.Error = rpcErr
		} else if result, ok := s.results[req.Method]; ok {
			resp.Result = json.RawMessage(result)
		} else {
			resp.Error = &RPCError{Code: -32601, Message: "method not found"}
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func newStubClient(t *testing.T, stub *rpcStub) *Client {
	t.Helper()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	client, err := NewClient(Config{RPCURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing RPC URL")
	}
}

func TestGetAccountInfo(t *testing.T) {
	client := newStubClient(t, &rpcStub{results: map[string]string{
		"getAccountInfo": `{"context":{"slot":1},"value":{"lamports":5000,"owner":"owner1","data":["aGVsbG8=","base64"]}}`,
	}})

	info, err := client.GetAccountInfo(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Lamports != 5000 || info.Owner != "owner1" {
		t.Fatalf("unexpected account info: %+v", info)
	}
}

func TestGetAccountInfoNotFound(t *testing.T) {
	client := newStubClient(t, &rpcStub{results: map[string]string{
		"getAccountInfo": `{"context":{"slot":1},"value":null}`,
	}})

	_, err := client.GetAccountInfo(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetBalance(t *testing.T) {
	client := newStubClient(t, &rpcStub{results: map[string]string{
		"getBalance": `{"context":{"slot":1},"value":2039280}`,
	}})

	balance, err := client.GetBalance(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 2039280 {
		t.Fatalf("unexpected balance: %d", balance)
	}
}

func TestCallSurfacesRPCError(t *testing.T) {
	client := newStubClient(t, &rpcStub{errors: map[string]*RPCError{
		"getBalance": {Code: -32005, Message: "node is behind"},
	}})

	_, err := client.GetBalance(context.Background(), "wallet1")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %v", err)
	}
	if rpcErr.Code != -32005 {
		t.Fatalf("unexpected code: %d", rpcErr.Code)
	}
}

func TestGetSignatureStatus(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantNil   bool
		confirmed bool
		failed    bool
	}{
		{"unknown", `[null]`, true, false, false},
		{"processed", `[{"slot":10,"confirmations":1,"confirmationStatus":"processed","err":null}]`, false, false, false},
		{"confirmed", `[{"slot":10,"confirmations":5,"confirmationStatus":"confirmed","err":null}]`, false, true, false},
		{"failed", `[{"slot":10,"confirmations":null,"confirmationStatus":"finalized","err":{"InstructionError":[0,{"Custom":6001}]}}]`, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newStubClient(t, &rpcStub{results: map[string]string{
				"getSignatureStatuses": fmt.Sprintf(`{"context":{"slot":1},"value":%s}`, tt.value),
			}})

			status, err := client.GetSignatureStatus(context.Background(), "sig1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if status != nil {
					t.Fatalf("expected nil status, got %+v", status)
				}
				return
			}
			if status.Confirmed() != tt.confirmed {
				t.Fatalf("Confirmed() = %v, want %v", status.Confirmed(), tt.confirmed)
			}
			if status.Failed() != tt.failed {
				t.Fatalf("Failed() = %v, want %v", status.Failed(), tt.failed)
			}
		})
	}
}

func TestGetLatestBlockhash(t *testing.T) {
	client := newStubClient(t, &rpcStub{results: map[string]string{
		"getLatestBlockhash": `{"context":{"slot":1},"value":{"blockhash":"hash1","lastValidBlockHeight":900}}`,
	}})

	recent, err := client.GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recent.Blockhash != "hash1" || recent.LastValidBlockHeight != 900 {
		t.Fatalf("unexpected blockhash: %+v", recent)
	}
}
