// Package sendmessage implements
// PUT /_matrix/client/r0/rooms/{roomId}/send/{eventType}/{txnId}.
package sendmessage

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/adamwoolhether/mxclient/endpoint"
)

var metadata = endpoint.Metadata{
	Name:                   "send_message_event",
	Description:            "Send a message event to a room.",
	Method:                 http.MethodPut,
	Path:                   "/_matrix/client/r0/rooms/{roomId}/send/{eventType}/{txnId}",
	RequiresAuthentication: true,
	RateLimited:            false,
}

// EventTypeMessage is the m.room.message event type.
const EventTypeMessage = "m.room.message"

// Request sends Content as an event of EventType. The homeserver
// deduplicates retries that reuse TxnID.
type Request struct {
	RoomID    string `json:"room_id" validate:"required,mxid=!"`
	EventType string `json:"event_type" validate:"required"`
	TxnID     string `json:"txn_id" validate:"required"`
	Content   any    `json:"content" validate:"required"`
}

type Response struct {
	EventID string `json:"event_id"`
}

// TextMessage is the content of a plain m.text message.
type TextMessage struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

// NewText builds a request sending body as an m.text message with a fresh
// transaction ID.
func NewText(roomID, body string) Request {
	return Request{
		RoomID:    roomID,
		EventType: EventTypeMessage,
		TxnID:     NewTxnID(),
		Content:   TextMessage{MsgType: "m.text", Body: body},
	}
}

// NewTxnID returns a transaction ID unique to this client.
func NewTxnID() string {
	return uuid.NewString()
}

var Endpoint endpoint.Endpoint[Request, *Response] = sendMessageEndpoint{}

type sendMessageEndpoint struct{}

func (sendMessageEndpoint) Metadata() endpoint.Metadata { return metadata }

func (sendMessageEndpoint) NewRequest(req Request) (*http.Request, error) {
	if err := endpoint.Validate(req); err != nil {
		return nil, fmt.Errorf("validating send message request: %w", err)
	}

	path := endpoint.Path("/_matrix/client/r0/rooms/%s/send/%s/%s", req.RoomID, req.EventType, req.TxnID)

	return endpoint.NewRequest(metadata.Method, path, endpoint.WithPayload(req.Content))
}

func (sendMessageEndpoint) DecodeResponse(resp *http.Response) (*Response, error) {
	return endpoint.DecodeJSON[Response](resp)
}
