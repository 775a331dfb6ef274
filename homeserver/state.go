package homeserver

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adamwoolhether/mxclient/api/r0/room/createroom"
	"github.com/adamwoolhether/mxclient/api/r0/sync/syncevents"
	"github.com/adamwoolhether/mxclient/endpoint"
	"github.com/adamwoolhether/mxclient/homeserver/web"
)

var localpartRE = regexp.MustCompile(`^[a-z0-9._=\-/]+$`)

const (
	membershipJoin   = "join"
	membershipInvite = "invite"

	joinRulePublic = "public"
	joinRuleInvite = "invite"
)

type account struct {
	userID   string
	password string
	guest    bool
}

type event struct {
	pos            int64
	EventID        string          `json:"event_id"`
	Type           string          `json:"type"`
	Sender         string          `json:"sender"`
	RoomID         string          `json:"room_id"`
	OriginServerTS int64           `json:"origin_server_ts"`
	StateKey       *string         `json:"state_key,omitempty"`
	Content        json.RawMessage `json:"content"`
}

type room struct {
	id       string
	joinRule string
	members  map[string]string
	events   []event
}

type presence struct {
	state      string
	pos        int64
	lastActive time.Time
}

type txnKey struct {
	token string
	txnID string
}

// state is the homeserver's in-memory database. Every change advances the
// stream position and wakes waiting syncs.
type state struct {
	mu         sync.Mutex
	serverName string
	accounts   map[string]*account
	tokens     map[string]web.User
	rooms      map[string]*room
	aliases    map[string]string
	presence   map[string]presence
	txns       map[txnKey]string
	pos        int64
	guestSeq   int
	changed    chan struct{}
	now        func() time.Time
}

func newState(serverName string) *state {
	return &state{
		serverName: serverName,
		accounts:   make(map[string]*account),
		tokens:     make(map[string]web.User),
		rooms:      make(map[string]*room),
		aliases:    make(map[string]string),
		presence:   make(map[string]presence),
		txns:       make(map[txnKey]string),
		changed:    make(chan struct{}),
		now:        time.Now,
	}
}

// bump advances the stream position. Callers hold mu.
func (s *state) bump() int64 {
	s.pos++
	close(s.changed)
	s.changed = make(chan struct{})

	return s.pos
}

func (s *state) userID(localpart string) string {
	return fmt.Sprintf("@%s:%s", localpart, s.serverName)
}

// normalizeUser accepts either a localpart or a full user ID on this server.
func (s *state) normalizeUser(user string) string {
	if strings.HasPrefix(user, "@") {
		return user
	}

	return s.userID(user)
}

// issue creates a new device session for an account. Callers hold mu.
func (s *state) issue(acc *account, deviceID string) web.User {
	if deviceID == "" {
		deviceID = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	}

	u := web.User{
		UserID:      acc.userID,
		DeviceID:    deviceID,
		AccessToken: "syt_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Guest:       acc.guest,
	}
	s.tokens[u.AccessToken] = u

	return u
}

func (s *state) registerGuest(deviceID string) web.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guestSeq++
	acc := &account{userID: s.userID(strconv.Itoa(s.guestSeq)), guest: true}
	for s.accounts[acc.userID] != nil {
		s.guestSeq++
		acc.userID = s.userID(strconv.Itoa(s.guestSeq))
	}
	s.accounts[acc.userID] = acc

	return s.issue(acc, deviceID)
}

func (s *state) registerUser(localpart, password, deviceID string) (web.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if localpart == "" {
		localpart = "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	if !localpartRE.MatchString(localpart) {
		return web.User{}, web.NewError(http.StatusBadRequest, endpoint.ErrCodeInvalidUser, "User ID can only contain characters a-z, 0-9, or '=_-./'")
	}

	userID := s.userID(localpart)
	if _, exists := s.accounts[userID]; exists {
		return web.User{}, web.NewError(http.StatusBadRequest, endpoint.ErrCodeUserInUse, "User ID already taken.")
	}

	acc := &account{userID: userID, password: password}
	s.accounts[userID] = acc

	return s.issue(acc, deviceID), nil
}

func (s *state) login(user, password, deviceID string) (web.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[s.normalizeUser(user)]
	if !ok || acc.guest || acc.password != password {
		return web.User{}, web.NewError(http.StatusForbidden, endpoint.ErrCodeForbidden, "Invalid username or password")
	}

	return s.issue(acc, deviceID), nil
}

func (s *state) lookup(token string) (web.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.tokens[token]
	return u, ok
}

// appendEvent adds an event to a room at a new stream position. Callers
// hold mu.
func (s *state) appendEvent(r *room, sender, eventType string, stateKey *string, content any) (event, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return event{}, fmt.Errorf("encoding %s content: %w", eventType, err)
	}

	ev := event{
		pos:            s.bump(),
		EventID:        fmt.Sprintf("$%s:%s", strings.ReplaceAll(uuid.NewString(), "-", ""), s.serverName),
		Type:           eventType,
		Sender:         sender,
		RoomID:         r.id,
		OriginServerTS: s.now().UnixMilli(),
		StateKey:       stateKey,
		Content:        raw,
	}
	r.events = append(r.events, ev)

	return ev, nil
}

func (s *state) createRoom(u web.User, req createroom.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var alias string
	if req.RoomAliasName != "" {
		alias = fmt.Sprintf("#%s:%s", req.RoomAliasName, s.serverName)
		if _, taken := s.aliases[alias]; taken {
			return "", web.NewError(http.StatusBadRequest, endpoint.ErrCodeRoomInUse, "Room alias %s already taken", alias)
		}
	}

	joinRule := joinRuleInvite
	switch {
	case req.Preset == createroom.PresetPublicChat:
		joinRule = joinRulePublic
	case req.Preset == "" && req.Visibility == createroom.VisibilityPublic:
		joinRule = joinRulePublic
	}

	r := &room{
		id:       fmt.Sprintf("!%s:%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:18], s.serverName),
		joinRule: joinRule,
		members:  map[string]string{u.UserID: membershipJoin},
	}

	empty := ""
	creator := u.UserID
	invitees := slices.Clone(req.Invite)

	type stateEvent struct {
		typ      string
		stateKey *string
		content  any
	}
	initial := []stateEvent{
		{typ: "m.room.create", stateKey: &empty, content: map[string]any{"creator": creator}},
		{typ: "m.room.member", stateKey: &creator, content: map[string]any{"membership": membershipJoin}},
		{typ: "m.room.join_rules", stateKey: &empty, content: map[string]any{"join_rule": joinRule}},
	}
	if req.Name != "" {
		initial = append(initial, stateEvent{typ: "m.room.name", stateKey: &empty, content: map[string]any{"name": req.Name}})
	}
	if req.Topic != "" {
		initial = append(initial, stateEvent{typ: "m.room.topic", stateKey: &empty, content: map[string]any{"topic": req.Topic}})
	}
	if alias != "" {
		initial = append(initial, stateEvent{typ: "m.room.canonical_alias", stateKey: &empty, content: map[string]any{"alias": alias}})
	}
	for i := range invitees {
		initial = append(initial, stateEvent{typ: "m.room.member", stateKey: &invitees[i], content: map[string]any{
			"membership": membershipInvite,
			"is_direct":  req.IsDirect,
		}})
	}

	for _, se := range initial {
		if _, err := s.appendEvent(r, creator, se.typ, se.stateKey, se.content); err != nil {
			return "", err
		}
	}
	for _, invitee := range invitees {
		if r.members[invitee] == "" {
			r.members[invitee] = membershipInvite
		}
	}

	s.rooms[r.id] = r
	if alias != "" {
		s.aliases[alias] = r.id
	}

	return r.id, nil
}

func (s *state) resolveAlias(alias string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.aliases[alias]
	return id, ok
}

func (s *state) join(u web.User, roomIDOrAlias string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID := roomIDOrAlias
	if strings.HasPrefix(roomIDOrAlias, "#") {
		id, ok := s.aliases[roomIDOrAlias]
		if !ok {
			return "", web.NewError(http.StatusNotFound, endpoint.ErrCodeNotFound, "Room alias %s not found", roomIDOrAlias)
		}
		roomID = id
	}

	r, ok := s.rooms[roomID]
	if !ok {
		return "", web.NewError(http.StatusNotFound, endpoint.ErrCodeNotFound, "Unknown room %s", roomID)
	}

	switch r.members[u.UserID] {
	case membershipJoin:
		return r.id, nil
	case membershipInvite:
	default:
		if r.joinRule != joinRulePublic {
			return "", web.NewError(http.StatusForbidden, endpoint.ErrCodeForbidden, "You are not invited to this room.")
		}
	}

	userID := u.UserID
	if _, err := s.appendEvent(r, userID, "m.room.member", &userID, map[string]any{"membership": membershipJoin}); err != nil {
		return "", err
	}
	r.members[userID] = membershipJoin

	return r.id, nil
}

// send appends a message event. Retries with the same access token and
// transaction ID return the original event ID without a new event.
func (s *state) send(u web.User, roomID, eventType, txnID string, content json.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := txnKey{token: u.AccessToken, txnID: txnID}
	if eventID, ok := s.txns[key]; ok {
		return eventID, nil
	}

	r, ok := s.rooms[roomID]
	if !ok || r.members[u.UserID] != membershipJoin {
		return "", web.NewError(http.StatusForbidden, endpoint.ErrCodeForbidden, "User %s not in room %s", u.UserID, roomID)
	}

	ev, err := s.appendEvent(r, u.UserID, eventType, nil, content)
	if err != nil {
		return "", err
	}
	s.txns[key] = ev.EventID

	return ev.EventID, nil
}

// setPresence records the user's presence. Only a change advances the
// stream.
func (s *state) setPresence(userID, presenceState string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.presence[userID]
	if ok && p.state == presenceState {
		p.lastActive = s.now()
		s.presence[userID] = p
		return
	}

	s.presence[userID] = presence{state: presenceState, pos: s.bump(), lastActive: s.now()}
}

// sync collects everything visible to userID after the since position.
// It also returns the channel closed by the next change, for long-polling.
func (s *state) sync(userID string, since int64, fullState bool) (*syncevents.Response, bool, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &syncevents.Response{NextBatch: formatToken(s.pos)}
	updated := false

	from := since
	if fullState {
		from = 0
	}

	for _, roomID := range slices.Sorted(maps.Keys(s.rooms)) {
		r := s.rooms[roomID]

		switch r.members[userID] {
		case membershipJoin:
			after := from
			if r.membershipEvent(userID) > from {
				// Newly joined rooms carry their whole timeline.
				after = 0
			}
			events := r.eventsAfter(after)
			if len(events) == 0 {
				continue
			}
			if resp.Rooms.Join == nil {
				resp.Rooms.Join = make(map[string]syncevents.JoinedRoom)
			}
			resp.Rooms.Join[roomID] = syncevents.JoinedRoom{Timeline: syncevents.Timeline{Events: events}}
			updated = true

		case membershipInvite:
			if r.membershipEvent(userID) <= from {
				continue
			}
			if resp.Rooms.Invite == nil {
				resp.Rooms.Invite = make(map[string]syncevents.InvitedRoom)
			}
			resp.Rooms.Invite[roomID] = syncevents.InvitedRoom{InviteState: syncevents.Events{Events: r.strippedState()}}
			updated = true
		}
	}

	now := s.now()
	for _, uid := range slices.Sorted(maps.Keys(s.presence)) {
		p := s.presence[uid]
		if p.pos <= since {
			continue
		}

		raw, err := json.Marshal(map[string]any{
			"type":   "m.presence",
			"sender": uid,
			"content": map[string]any{
				"presence":        p.state,
				"last_active_ago": now.Sub(p.lastActive).Milliseconds(),
			},
		})
		if err != nil {
			continue
		}
		resp.Presence.Events = append(resp.Presence.Events, raw)
		updated = true
	}

	return resp, updated, s.changed
}

func (r *room) eventsAfter(pos int64) []json.RawMessage {
	var out []json.RawMessage
	for _, ev := range r.events {
		if ev.pos <= pos {
			continue
		}
		raw, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		out = append(out, raw)
	}

	return out
}

// membershipEvent returns the stream position of the latest membership
// change of userID.
func (r *room) membershipEvent(userID string) int64 {
	var pos int64
	for _, ev := range r.events {
		if ev.Type == "m.room.member" && ev.StateKey != nil && *ev.StateKey == userID {
			pos = ev.pos
		}
	}

	return pos
}

// strippedState is the subset of state shown to invitees.
func (r *room) strippedState() []json.RawMessage {
	var out []json.RawMessage
	for _, ev := range r.events {
		switch ev.Type {
		case "m.room.create", "m.room.name", "m.room.topic", "m.room.canonical_alias", "m.room.join_rules", "m.room.member":
		default:
			continue
		}

		raw, err := json.Marshal(struct {
			Type     string          `json:"type"`
			StateKey *string         `json:"state_key"`
			Sender   string          `json:"sender"`
			Content  json.RawMessage `json:"content"`
		}{ev.Type, ev.StateKey, ev.Sender, ev.Content})
		if err != nil {
			continue
		}
		out = append(out, raw)
	}

	return out
}

func formatToken(pos int64) string {
	return fmt.Sprintf("s%d", pos)
}

func parseToken(token string) (int64, error) {
	var pos int64
	if _, err := fmt.Sscanf(token, "s%d", &pos); err != nil || pos < 0 || formatToken(pos) != token {
		return 0, fmt.Errorf("invalid stream token[%s]", token)
	}

	return pos, nil
}
