// Package consts holds shared channel and room naming constants.
package consts

const (
	// EventChannelPrefix prefixes every Redis channel a domain event is
	// published to; the remainder of the channel name is the event name.
	EventChannelPrefix = "event:"
	// EventChannelPattern is the pattern the bus subscriber listens on.
	EventChannelPattern = "event:*"

	RoomBoardPrefix     = "room:board:"
	RoomWorkspacePrefix = "room:workspace:"
	RoomSessionPrefix   = "room:session:"

	// PresenceUpdate is the gateway-emitted socket event carrying the
	// current user list of a room after a membership change.
	PresenceUpdate = "presence:update"
)
