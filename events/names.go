package events

// Domain event names. The prefix before the first colon is the category used
// for transport channels and handler registration.
const (
	BoardCreated = "board:created"
	LaneCreated  = "lane:created"

	CardCreated    = "card:created"
	CardUpdated    = "card:updated"
	CardMoved      = "card:moved"
	CardArchived   = "card:archived"
	CardUnarchived = "card:unarchived"

	AssigneeAdded   = "assignee:added"
	AssigneeRemoved = "assignee:removed"

	VoteChanged = "vote:changed"

	CommentCreated = "comment:created"
	CommentDeleted = "comment:deleted"

	TagCreated    = "tag:created"
	TagAssigned   = "tag:assigned"
	TagUnassigned = "tag:unassigned"

	ChatMessageSent    = "chat:message:sent"
	ChatMessageDeleted = "chat:message:deleted"

	WorkspaceCreated     = "workspace:created"
	WorkspaceMemberAdded = "workspace:memberAdded"

	SessionCreated    = "session:created"
	SessionUserJoined = "session:user_joined"
	SessionUserLeft   = "session:user_left"

	NotificationCreated = "notification:created"
)

// RoomCategories are the categories whose events are routed to rooms by the
// gateway. Notification events are excluded: they are delivered per
// recipient, not per room.
var RoomCategories = []string{
	"board",
	"card",
	"assignee",
	"vote",
	"tag",
	"comment",
	"chat",
	"lane",
	"workspace",
	"session",
}

// NotificationCategory is the category delivered by recipient scan.
const NotificationCategory = "notification"
