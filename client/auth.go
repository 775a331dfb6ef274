package client

import (
	"context"

	"github.com/adamwoolhether/mxclient/api/r0/account/register"
	"github.com/adamwoolhether/mxclient/api/r0/session/login"
)

// LogIn authenticates with a user ID (or localpart) and password and stores
// the returned session in the client. An empty deviceID lets the homeserver
// assign one. On failure the current session is left as it was.
func (c *Client) LogIn(ctx context.Context, user, password, deviceID string) (Session, error) {
	resp, err := Dispatch(ctx, c, login.Endpoint, login.Request{
		Type:     login.LoginTypePassword,
		User:     user,
		Password: password,
		DeviceID: deviceID,
	})
	if err != nil {
		return Session{}, err
	}

	return c.storeSession(ctx, resp.AccessToken, resp.DeviceID, resp.UserID), nil
}

// RegisterGuest registers a guest account and stores its session in the
// client.
func (c *Client) RegisterGuest(ctx context.Context) (Session, error) {
	resp, err := Dispatch(ctx, c, register.Endpoint, register.Request{
		Kind: register.KindGuest,
	})
	if err != nil {
		return Session{}, err
	}

	return c.storeSession(ctx, resp.AccessToken, resp.DeviceID, resp.UserID), nil
}

// RegisterUser registers a new user account and stores its session in the
// client. username is the localpart of the new user ID; when empty the
// homeserver generates one.
func (c *Client) RegisterUser(ctx context.Context, username, password string) (Session, error) {
	resp, err := Dispatch(ctx, c, register.Endpoint, register.Request{
		Kind:     register.KindUser,
		Username: username,
		Password: password,
	})
	if err != nil {
		return Session{}, err
	}

	return c.storeSession(ctx, resp.AccessToken, resp.DeviceID, resp.UserID), nil
}

func (c *Client) storeSession(ctx context.Context, accessToken, deviceID, userID string) Session {
	session := Session{
		AccessToken: accessToken,
		DeviceID:    deviceID,
		UserID:      userID,
	}
	c.session.set(session)

	c.logger.InfoContext(ctx, "session established", "user_id", userID, "device_id", deviceID)

	return session
}
