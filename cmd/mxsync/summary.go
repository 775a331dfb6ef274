package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/adamwoolhether/mxclient/api/r0/sync/syncevents"
)

// summary counts what one sync batch carried.
type summary struct {
	NextBatch   string
	Joined      int
	Invited     int
	Left        int
	Timeline    int
	State       int
	Presence    int
	AccountData int
	ToDevice    int
}

func summarize(resp *syncevents.Response) summary {
	s := summary{
		NextBatch:   resp.NextBatch,
		Joined:      len(resp.Rooms.Join),
		Invited:     len(resp.Rooms.Invite),
		Left:        len(resp.Rooms.Leave),
		Presence:    len(resp.Presence.Events),
		AccountData: len(resp.AccountData.Events),
		ToDevice:    len(resp.ToDevice.Events),
	}

	for _, room := range resp.Rooms.Join {
		s.Timeline += len(room.Timeline.Events)
		s.State += len(room.State.Events)
	}
	for _, room := range resp.Rooms.Leave {
		s.Timeline += len(room.Timeline.Events)
		s.State += len(room.State.Events)
	}
	for _, room := range resp.Rooms.Invite {
		s.State += len(room.InviteState.Events)
	}

	return s
}

func (s summary) empty() bool {
	return s.Joined+s.Invited+s.Left+s.Presence+s.AccountData+s.ToDevice == 0
}

func (s summary) print(w io.Writer) {
	if s.empty() {
		color.New(color.Faint).Fprintf(w, "    · %s no changes\n", s.NextBatch)
		return
	}

	color.New(color.FgGreen).Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "%s rooms joined=%d invited=%d left=%d events timeline=%d state=%d presence=%d\n",
		s.NextBatch, s.Joined, s.Invited, s.Left, s.Timeline, s.State, s.Presence)
}
