package homeserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/adamwoolhether/mxclient/api/r0/account/register"
	"github.com/adamwoolhether/mxclient/api/r0/account/whoami"
	"github.com/adamwoolhether/mxclient/api/r0/alias/getalias"
	"github.com/adamwoolhether/mxclient/api/r0/membership/joinroom"
	"github.com/adamwoolhether/mxclient/api/r0/room/createroom"
	"github.com/adamwoolhether/mxclient/api/r0/send/sendmessage"
	"github.com/adamwoolhether/mxclient/api/r0/session/login"
	"github.com/adamwoolhether/mxclient/api/r0/sync/syncevents"
	"github.com/adamwoolhether/mxclient/endpoint"
	"github.com/adamwoolhether/mxclient/homeserver/web"
)

func (hs *Homeserver) versions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.RespondJSON(ctx, w, http.StatusOK, map[string][]string{
		"versions": {"r0.5.0", "r0.6.1"},
	})
}

func (hs *Homeserver) login(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req login.Request
	if err := web.Decode(r, &req); err != nil {
		return err
	}
	if req.Address != "" {
		return web.NewError(http.StatusBadRequest, endpoint.ErrCodeUnknown, "Third-party identifier login is not supported")
	}

	u, err := hs.state.login(req.User, req.Password, req.DeviceID)
	if err != nil {
		return err
	}

	return web.RespondJSON(ctx, w, http.StatusOK, login.Response{
		AccessToken: u.AccessToken,
		HomeServer:  hs.state.serverName,
		UserID:      u.UserID,
		DeviceID:    u.DeviceID,
	})
}

func (hs *Homeserver) register(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	kind := register.RegistrationKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = register.KindUser
	}

	var req register.Request
	if err := web.Decode(r, &req); err != nil {
		return err
	}
	req.Kind = kind
	if err := endpoint.Validate(req); err != nil {
		return err
	}

	var u web.User
	switch kind {
	case register.KindGuest:
		u = hs.state.registerGuest(req.DeviceID)
	default:
		var err error
		if u, err = hs.state.registerUser(req.Username, req.Password, req.DeviceID); err != nil {
			return err
		}
	}

	return web.RespondJSON(ctx, w, http.StatusOK, register.Response{
		AccessToken: u.AccessToken,
		HomeServer:  hs.state.serverName,
		UserID:      u.UserID,
		DeviceID:    u.DeviceID,
	})
}

func (hs *Homeserver) whoami(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	u, _ := web.GetUser(ctx)

	return web.RespondJSON(ctx, w, http.StatusOK, whoami.Response{UserID: u.UserID})
}

// sync answers immediately when there is something new or the request is
// an initial sync. Otherwise it waits up to the requested timeout for the
// next change.
func (hs *Homeserver) sync(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	u, _ := web.GetUser(ctx)
	q := r.URL.Query()

	var since int64
	if token := q.Get("since"); token != "" {
		pos, err := parseToken(token)
		if err != nil {
			return web.NewError(http.StatusBadRequest, endpoint.ErrCodeInvalidParam, "%v", err)
		}
		since = pos
	}

	var timeout time.Duration
	if raw := q.Get("timeout"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			return web.NewError(http.StatusBadRequest, endpoint.ErrCodeInvalidParam, "timeout[%s] must be a non-negative integer", raw)
		}
		timeout = time.Duration(min(ms, hs.maxSyncTimeout.Milliseconds())) * time.Millisecond
	}

	fullState := q.Get("full_state") == "true"

	switch presence := syncevents.SetPresence(q.Get("set_presence")); presence {
	case "", syncevents.PresenceOnline:
		hs.state.setPresence(u.UserID, string(syncevents.PresenceOnline))
	case syncevents.PresenceUnavailable:
		hs.state.setPresence(u.UserID, string(presence))
	case syncevents.PresenceOffline:
	default:
		return web.NewError(http.StatusBadRequest, endpoint.ErrCodeInvalidParam, "set_presence[%s] must be one of online, offline, unavailable", presence)
	}

	ctx, span := web.AddSpan(ctx, "homeserver.sync",
		attribute.String("matrix.user_id", u.UserID),
		attribute.Int64("matrix.since", since),
	)
	defer span.End()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	for {
		resp, updated, changed := hs.state.sync(u.UserID, since, fullState)
		if updated || since == 0 || timer == nil {
			return web.RespondJSON(ctx, w, http.StatusOK, resp)
		}

		select {
		case <-changed:
		case <-timer:
			return web.RespondJSON(ctx, w, http.StatusOK, resp)
		case <-hs.done:
			return web.RespondJSON(ctx, w, http.StatusOK, resp)
		case <-ctx.Done():
			return nil
		}
	}
}

func (hs *Homeserver) createRoom(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	u, _ := web.GetUser(ctx)
	if u.Guest {
		return web.NewError(http.StatusForbidden, endpoint.ErrCodeGuestAccess, "Guest access not allowed")
	}

	var req createroom.Request
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	roomID, err := hs.state.createRoom(u, req)
	if err != nil {
		return err
	}

	return web.RespondJSON(ctx, w, http.StatusOK, createroom.Response{RoomID: roomID})
}

func (hs *Homeserver) joinRoom(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	u, _ := web.GetUser(ctx)

	target := r.PathValue("roomIdOrAlias")
	if !strings.HasPrefix(target, "!") && !strings.HasPrefix(target, "#") {
		return web.NewError(http.StatusBadRequest, endpoint.ErrCodeInvalidParam, "%s was not legal room ID or room alias", target)
	}

	roomID, err := hs.state.join(u, target)
	if err != nil {
		return err
	}

	return web.RespondJSON(ctx, w, http.StatusOK, joinroom.Response{RoomID: roomID})
}

func (hs *Homeserver) getAlias(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	alias := r.PathValue("roomAlias")
	if err := endpoint.Validate(getalias.Request{RoomAlias: alias}); err != nil {
		return web.NewError(http.StatusBadRequest, endpoint.ErrCodeInvalidParam, "Invalid room alias %s", alias)
	}

	roomID, ok := hs.state.resolveAlias(alias)
	if !ok {
		return web.NewError(http.StatusNotFound, endpoint.ErrCodeNotFound, "Room alias %s not found", alias)
	}

	return web.RespondJSON(ctx, w, http.StatusOK, getalias.Response{
		RoomID:  roomID,
		Servers: []string{hs.state.serverName},
	})
}

func (hs *Homeserver) sendMessage(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	u, _ := web.GetUser(ctx)

	var content json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil || !strings.HasPrefix(strings.TrimSpace(string(content)), "{") {
		return web.NewError(http.StatusBadRequest, endpoint.ErrCodeNotJSON, "Content must be a JSON object")
	}

	eventID, err := hs.state.send(u, r.PathValue("roomId"), r.PathValue("eventType"), r.PathValue("txnId"), content)
	if err != nil {
		return err
	}

	return web.RespondJSON(ctx, w, http.StatusOK, sendmessage.Response{EventID: eventID})
}

func (hs *Homeserver) unrecognized(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.NewError(http.StatusNotFound, endpoint.ErrCodeUnrecognized, "Unrecognized request")
}
