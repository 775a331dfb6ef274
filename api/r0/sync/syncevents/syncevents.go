// Package syncevents implements GET /_matrix/client/r0/sync.
package syncevents

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/adamwoolhether/mxclient/endpoint"
)

var metadata = endpoint.Metadata{
	Name:                   "sync",
	Description:            "Get all new events from all rooms since the last sync or a given point of time.",
	Method:                 http.MethodGet,
	Path:                   "/_matrix/client/r0/sync",
	RequiresAuthentication: true,
	RateLimited:            false,
}

// SetPresence controls whether the client is marked online by the sync.
type SetPresence string

const (
	PresenceOffline     SetPresence = "offline"
	PresenceOnline      SetPresence = "online"
	PresenceUnavailable SetPresence = "unavailable"
)

// Filter is either the ID of a filter uploaded earlier or an inline
// definition. Exactly one must be set.
type Filter struct {
	ID         string
	Definition *FilterDefinition
}

// FilterDefinition is an inline filter.
type FilterDefinition struct {
	EventFields []string     `json:"event_fields,omitempty"`
	EventFormat string       `json:"event_format,omitempty"`
	AccountData *EventFilter `json:"account_data,omitempty"`
	Presence    *EventFilter `json:"presence,omitempty"`
	Room        *RoomFilter  `json:"room,omitempty"`
}

// EventFilter narrows a list of events.
type EventFilter struct {
	Limit      int      `json:"limit,omitempty"`
	NotSenders []string `json:"not_senders,omitempty"`
	NotTypes   []string `json:"not_types,omitempty"`
	Senders    []string `json:"senders,omitempty"`
	Types      []string `json:"types,omitempty"`
}

// RoomFilter narrows the rooms section.
type RoomFilter struct {
	Rooms        []string     `json:"rooms,omitempty"`
	NotRooms     []string     `json:"not_rooms,omitempty"`
	IncludeLeave bool         `json:"include_leave,omitempty"`
	Timeline     *EventFilter `json:"timeline,omitempty"`
	State        *EventFilter `json:"state,omitempty"`
	Ephemeral    *EventFilter `json:"ephemeral,omitempty"`
	AccountData  *EventFilter `json:"account_data,omitempty"`
}

func (f *Filter) queryValue() (string, error) {
	switch {
	case f.ID != "" && f.Definition != nil:
		return "", errors.New("filter must set either ID or Definition, not both")
	case f.ID != "":
		return f.ID, nil
	case f.Definition != nil:
		b, err := json.Marshal(f.Definition)
		if err != nil {
			return "", fmt.Errorf("encoding filter definition: %w", err)
		}
		return string(b), nil
	default:
		return "", errors.New("filter must set ID or Definition")
	}
}

// Request holds the sync query parameters. Zero values are omitted.
type Request struct {
	Filter      *Filter
	Since       string
	FullState   bool
	SetPresence SetPresence
	Timeout     time.Duration
}

// Response is the sync response. Event payloads are left raw.
type Response struct {
	NextBatch   string          `json:"next_batch"`
	Rooms       Rooms           `json:"rooms"`
	Presence    Events          `json:"presence"`
	AccountData Events          `json:"account_data"`
	ToDevice    Events          `json:"to_device"`
	DeviceLists DeviceLists     `json:"device_lists"`
	OneTimeKeys map[string]uint `json:"device_one_time_keys_count,omitempty"`
}

// Events is a list of raw events.
type Events struct {
	Events []json.RawMessage `json:"events"`
}

// Rooms holds per-room updates keyed by room ID.
type Rooms struct {
	Join   map[string]JoinedRoom  `json:"join,omitempty"`
	Invite map[string]InvitedRoom `json:"invite,omitempty"`
	Leave  map[string]LeftRoom    `json:"leave,omitempty"`
}

// JoinedRoom holds updates to a room the user is joined to.
type JoinedRoom struct {
	Timeline            Timeline            `json:"timeline"`
	State               Events              `json:"state"`
	AccountData         Events              `json:"account_data"`
	Ephemeral           Events              `json:"ephemeral"`
	UnreadNotifications UnreadNotifications `json:"unread_notifications"`
}

// InvitedRoom holds the stripped state of a room the user was invited to.
type InvitedRoom struct {
	InviteState Events `json:"invite_state"`
}

// LeftRoom holds updates to a room the user left.
type LeftRoom struct {
	Timeline Timeline `json:"timeline"`
	State    Events   `json:"state"`
}

// Timeline is a window of room events.
type Timeline struct {
	Events    []json.RawMessage `json:"events"`
	Limited   bool              `json:"limited,omitempty"`
	PrevBatch string            `json:"prev_batch,omitempty"`
}

// UnreadNotifications counts unread notifications in a room.
type UnreadNotifications struct {
	HighlightCount    uint `json:"highlight_count,omitempty"`
	NotificationCount uint `json:"notification_count,omitempty"`
}

// DeviceLists reports device list changes for end-to-end encryption.
type DeviceLists struct {
	Changed []string `json:"changed,omitempty"`
	Left    []string `json:"left,omitempty"`
}

// Endpoint is the sync endpoint.
var Endpoint endpoint.Endpoint[Request, *Response] = syncEndpoint{}

type syncEndpoint struct{}

func (syncEndpoint) Metadata() endpoint.Metadata { return metadata }

func (syncEndpoint) NewRequest(req Request) (*http.Request, error) {
	query := url.Values{}
	if req.Filter != nil {
		v, err := req.Filter.queryValue()
		if err != nil {
			return nil, err
		}
		query.Set("filter", v)
	}
	if req.Since != "" {
		query.Set("since", req.Since)
	}
	if req.FullState {
		query.Set("full_state", "true")
	}
	if req.SetPresence != "" {
		query.Set("set_presence", string(req.SetPresence))
	}
	if req.Timeout < 0 {
		return nil, fmt.Errorf("timeout[%s] must not be negative", req.Timeout)
	}
	if req.Timeout > 0 {
		query.Set("timeout", strconv.FormatInt(req.Timeout.Milliseconds(), 10))
	}

	return endpoint.NewRequest(metadata.Method, metadata.Path, endpoint.WithQuery(query))
}

func (syncEndpoint) DecodeResponse(resp *http.Response) (*Response, error) {
	out, err := endpoint.DecodeJSON[Response](resp)
	if err != nil {
		return nil, err
	}
	if out.NextBatch == "" {
		return nil, errors.New("sync response missing next_batch")
	}

	return out, nil
}
