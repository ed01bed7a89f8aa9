package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dest92/agora-backend/boards"
	"github.com/dest92/agora-backend/domain"
	"github.com/dest92/agora-backend/health"
	"github.com/dest92/agora-backend/notifications"
	"github.com/dest92/agora-backend/realtime"
	"github.com/dest92/agora-backend/sessions"
	"github.com/dest92/agora-backend/storage"
)

// Authenticator resolves a user ID from an Authorization header value.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Auth          Authenticator
	Hub           *realtime.Hub
	Boards        *boards.Management
	Cards         *boards.Cards
	Comments      *boards.Comments
	Assignees     *boards.Assignees
	Votes         *boards.Votes
	Tags          *boards.Tags
	Chat          *boards.Chat
	Sessions      *sessions.Service
	Notifications *notifications.Service
	Health        *health.Aggregator
}

// Register wires all routes on the given Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/api/services/health", servicesHealth(d.Health))
	e.GET("/ws", realtime.Handler(d.Hub, d.Auth))

	e.POST("/api/boards", createBoard(d))
	e.GET("/api/boards", listBoards(d))
	e.GET("/api/boards/:boardId", getBoard(d))
	e.POST("/api/boards/:boardId/lanes", createLane(d))
	e.GET("/api/boards/:boardId/lanes", listLanes(d))

	e.GET("/api/boards/:boardId/cards", listCards(d))
	e.POST("/api/boards/:boardId/cards", createCard(d))
	e.PATCH("/api/boards/:boardId/cards/:cardId", updateCard(d))
	e.POST("/api/boards/:boardId/cards/:cardId/archive", archiveCard(d, true))
	e.POST("/api/boards/:boardId/cards/:cardId/unarchive", archiveCard(d, false))

	e.POST("/api/boards/:boardId/cards/:cardId/assignees", addAssignee(d))
	e.DELETE("/api/boards/:boardId/cards/:cardId/assignees/:userId", removeAssignee(d))
	e.POST("/api/boards/:boardId/cards/:cardId/votes", castVote(d))
	e.GET("/api/boards/:boardId/cards/:cardId/votes/summary", voteSummary(d))
	e.GET("/api/boards/:boardId/cards/:cardId/votes/me", myVote(d))
	e.POST("/api/boards/:boardId/tags", createTag(d))
	e.POST("/api/boards/:boardId/cards/:cardId/tags", assignTag(d))
	e.DELETE("/api/boards/:boardId/cards/:cardId/tags/:tagId", unassignTag(d))

	e.GET("/api/boards/:boardId/cards/:cardId/comments", listComments(d))
	e.POST("/api/boards/:boardId/cards/:cardId/comments", createComment(d))
	e.DELETE("/api/comments/:commentId", deleteComment(d))

	e.GET("/api/boards/:boardId/chat", listChat(d))
	e.POST("/api/boards/:boardId/chat", sendChat(d))
	e.DELETE("/api/chat/:messageId", deleteChat(d))

	e.POST("/api/workspaces", createWorkspace(d))
	e.POST("/api/workspaces/:workspaceId/members", addMember(d))
	e.POST("/api/workspaces/:workspaceId/sessions", createSession(d))
	e.POST("/api/sessions/:sessionId/join", joinSession(d))
	e.POST("/api/sessions/:sessionId/leave", leaveSession(d))
	e.GET("/api/sessions/:sessionId/participants", sessionParticipants(d))

	e.GET("/api/notifications", listNotifications(d))
}

// servicesHealth runs the aggregator and reports the matrix. The status
// code reflects the overall verdict; the body is always the full matrix.
func servicesHealth(agg *health.Aggregator) echo.HandlerFunc {
	return func(c echo.Context) error {
		matrix := agg.Run(c.Request().Context())
		status := http.StatusOK
		if !matrix.Overall {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, matrix)
	}
}

func userID(c echo.Context, auth Authenticator) (string, error) {
	return auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
}

func fail(c echo.Context, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return c.NoContent(http.StatusNotFound)
	}
	c.Logger().Error(err)
	return c.String(http.StatusInternalServerError, err.Error())
}

func createBoard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			Name        string `json:"name"`
			WorkspaceID string `json:"workspaceId"`
		}
		if err := c.Bind(&body); err != nil || body.Name == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		board, err := d.Boards.CreateBoard(c.Request().Context(), uid, body.WorkspaceID, body.Name)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, board)
	}
}

func listBoards(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		out, err := d.Boards.ListBoards(c.Request().Context(), c.QueryParam("workspaceId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func getBoard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		board, err := d.Boards.GetBoard(c.Request().Context(), c.Param("boardId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func createLane(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			Title    string `json:"title"`
			Position int    `json:"position"`
		}
		if err := c.Bind(&body); err != nil || body.Title == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		lane, err := d.Boards.CreateLane(c.Request().Context(), c.Param("boardId"), body.Title, body.Position)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, lane)
	}
}

func listLanes(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		lanes, err := d.Boards.Lanes(c.Request().Context(), c.Param("boardId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, lanes)
	}
}

func listCards(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		cards, err := d.Cards.List(c.Request().Context(), c.Param("boardId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, cards)
	}
}

func createCard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			Content  string `json:"content"`
			Priority string `json:"priority"`
			Position int    `json:"position"`
			LaneID   string `json:"laneId"`
		}
		if err := c.Bind(&body); err != nil || body.Content == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		card, err := d.Cards.Create(c.Request().Context(), boards.CreateCardInput{
			BoardID:  c.Param("boardId"),
			AuthorID: uid,
			Content:  body.Content,
			Priority: body.Priority,
			Position: body.Position,
			LaneID:   body.LaneID,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, card)
	}
}

func updateCard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var upd domain.CardUpdate
		if err := c.Bind(&upd); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		card, err := d.Cards.Update(c.Request().Context(), c.Param("cardId"), c.Param("boardId"), upd)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, card)
	}
}

func archiveCard(d Deps, archive bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		ctx := c.Request().Context()
		var err error
		if archive {
			err = d.Cards.Archive(ctx, c.Param("cardId"), c.Param("boardId"))
		} else {
			err = d.Cards.Unarchive(ctx, c.Param("cardId"), c.Param("boardId"))
		}
		if err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func addAssignee(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			UserID string `json:"userId"`
		}
		if err := c.Bind(&body); err != nil || body.UserID == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		res, err := d.Assignees.Assign(c.Request().Context(), c.Param("boardId"), c.Param("cardId"), body.UserID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func removeAssignee(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		res, err := d.Assignees.Unassign(c.Request().Context(), c.Param("boardId"), c.Param("cardId"), c.Param("userId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func castVote(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			VoteType string `json:"voteType"`
		}
		if err := c.Bind(&body); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		res, err := d.Votes.Cast(c.Request().Context(), c.Param("boardId"), c.Param("cardId"), uid, body.VoteType)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.NoContent(http.StatusNotFound)
			}
			return c.String(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, res)
	}
}

func voteSummary(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		summary, err := d.Votes.Summary(c.Request().Context(), c.Param("cardId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, summary)
	}
}

func myVote(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		voteType, err := d.Votes.UserVote(c.Request().Context(), c.Param("cardId"), uid)
		if err != nil {
			return fail(c, err)
		}
		var out any
		if voteType != "" {
			out = voteType
		}
		return c.JSON(http.StatusOK, map[string]any{"voteType": out})
	}
}

func createTag(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			Label string `json:"label"`
			Color string `json:"color"`
		}
		if err := c.Bind(&body); err != nil || body.Label == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		tag, err := d.Tags.Create(c.Request().Context(), c.Param("boardId"), body.Label, body.Color)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, tag)
	}
}

func assignTag(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			TagID string `json:"tagId"`
		}
		if err := c.Bind(&body); err != nil || body.TagID == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		res, err := d.Tags.Assign(c.Request().Context(), c.Param("boardId"), c.Param("cardId"), body.TagID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func unassignTag(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		res, err := d.Tags.Unassign(c.Request().Context(), c.Param("boardId"), c.Param("cardId"), c.Param("tagId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func listComments(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		comments, err := d.Comments.List(c.Request().Context(), c.Param("cardId"), 0)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, comments)
	}
}

func createComment(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			Content string `json:"content"`
		}
		if err := c.Bind(&body); err != nil || body.Content == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		comment, err := d.Comments.Create(c.Request().Context(), c.Param("boardId"), c.Param("cardId"), uid, body.Content)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, comment)
	}
}

func deleteComment(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := d.Comments.Delete(c.Request().Context(), c.Param("commentId"), uid); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func listChat(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		msgs, err := d.Chat.List(c.Request().Context(), c.Param("boardId"), 0)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, msgs)
	}
}

func sendChat(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			Content string `json:"content"`
		}
		if err := c.Bind(&body); err != nil || body.Content == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		msg, err := d.Chat.Send(c.Request().Context(), c.Param("boardId"), uid, body.Content)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, msg)
	}
}

func deleteChat(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := d.Chat.Delete(c.Request().Context(), c.Param("messageId"), uid); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func createWorkspace(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := c.Bind(&body); err != nil || body.Name == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		ws, err := d.Sessions.CreateWorkspace(c.Request().Context(), uid, body.Name)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, ws)
	}
}

func addMember(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			UserID string `json:"userId"`
		}
		if err := c.Bind(&body); err != nil || body.UserID == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		res, err := d.Sessions.AddMember(c.Request().Context(), c.Param("workspaceId"), body.UserID, uid)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func createSession(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			Title string `json:"title"`
		}
		if err := c.Bind(&body); err != nil || body.Title == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		sess, err := d.Sessions.CreateSession(c.Request().Context(), c.Param("workspaceId"), body.Title)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, sess)
	}
}

func joinSession(d Deps) echo.HandlerFunc {
	return sessionMembership(d, true)
}

func leaveSession(d Deps) echo.HandlerFunc {
	return sessionMembership(d, false)
}

func sessionMembership(d Deps, join bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var body struct {
			WorkspaceID string `json:"workspaceId"`
		}
		if err := c.Bind(&body); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		ctx := c.Request().Context()
		var res any
		if join {
			res, err = d.Sessions.Join(ctx, c.Param("sessionId"), body.WorkspaceID, uid)
		} else {
			res, err = d.Sessions.Leave(ctx, c.Param("sessionId"), body.WorkspaceID, uid)
		}
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func sessionParticipants(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userID(c, d.Auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		users, err := d.Sessions.Participants(c.Request().Context(), c.Param("sessionId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"users": users})
	}
}

func listNotifications(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := userID(c, d.Auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		out, err := d.Notifications.List(c.Request().Context(), uid, 0)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}
