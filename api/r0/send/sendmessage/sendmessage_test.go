package sendmessage_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/adamwoolhether/mxclient/api/r0/send/sendmessage"
)

func TestNewRequest(t *testing.T) {
	req, err := sendmessage.Endpoint.NewRequest(sendmessage.Request{
		RoomID:    "!room:example.org",
		EventType: sendmessage.EventTypeMessage,
		TxnID:     "txn1",
		Content:   sendmessage.TextMessage{MsgType: "m.text", Body: "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Method != http.MethodPut {
		t.Errorf("method = %q", req.Method)
	}
	if got := req.URL.EscapedPath(); got != "/_matrix/client/r0/rooms/%21room:example.org/send/m.room.message/txn1" {
		t.Errorf("escaped path = %q", got)
	}

	b, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != "{\"msgtype\":\"m.text\",\"body\":\"hello\"}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestNewRequest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  sendmessage.Request
	}{
		{name: "room id without sigil", req: sendmessage.Request{RoomID: "room", EventType: "m.room.message", TxnID: "t", Content: "x"}},
		{name: "missing txn", req: sendmessage.Request{RoomID: "!room:example.org", EventType: "m.room.message", Content: "x"}},
		{name: "missing content", req: sendmessage.Request{RoomID: "!room:example.org", EventType: "m.room.message", TxnID: "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sendmessage.Endpoint.NewRequest(tt.req); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewText(t *testing.T) {
	a := sendmessage.NewText("!room:example.org", "hi")
	b := sendmessage.NewText("!room:example.org", "hi")

	if a.TxnID == "" || a.TxnID == b.TxnID {
		t.Errorf("transaction ids must be unique and non-empty: %q %q", a.TxnID, b.TxnID)
	}
	if a.EventType != sendmessage.EventTypeMessage {
		t.Errorf("event type = %q", a.EventType)
	}
	if _, err := sendmessage.Endpoint.NewRequest(a); err != nil {
		t.Errorf("NewText built an invalid request: %v", err)
	}
}
