package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"simplekanban/internal/logging"
	"simplekanban/internal/models"
	"simplekanban/internal/services"
	"simplekanban/internal/store"
	"simplekanban/pkg/auth"
)

// BoardSessionHandler runs board WebSocket sessions: it admits a
// connection to a board group, sends the full snapshot, then serves the
// command loop until the client disconnects.
type BoardSessionHandler struct {
	store        *store.Store
	broadcaster  services.Broadcaster
	throttler    services.Throttler
	authorizer   *services.Authorizer
	mailer       services.Mailer
	metrics      *services.Metrics
	domain       string
	inviteExpiry time.Duration
}

// NewBoardSessionHandler creates a new board session handler
func NewBoardSessionHandler(
	s *store.Store,
	broadcaster services.Broadcaster,
	throttler services.Throttler,
	authorizer *services.Authorizer,
	mailer services.Mailer,
	metrics *services.Metrics,
	domain string,
	inviteExpiry time.Duration,
) *BoardSessionHandler {
	return &BoardSessionHandler{
		store:        s,
		broadcaster:  broadcaster,
		throttler:    throttler,
		authorizer:   authorizer,
		mailer:       mailer,
		metrics:      metrics,
		domain:       domain,
		inviteExpiry: inviteExpiry,
	}
}

// session is the per-connection state threaded through command handlers.
type session struct {
	board  *models.Board
	user   *models.User
	conn   *models.BoardConnection
	logger *slog.Logger
}

// Handle handles a new board WebSocket connection
func (h *BoardSessionHandler) Handle(c *websocket.Conn) {
	connID := uuid.New().String()
	boardSlug := c.Params("board_slug")
	userSlug, _ := c.Locals("user_slug").(string)
	clientIP, _ := c.Locals("client_ip").(string)
	inviteToken, _ := c.Locals("invite_token").(string)

	logger := logging.WithBoard(boardSlug, userSlug, clientIP)
	ctx := context.Background()

	sess, admitErr := h.admit(ctx, boardSlug, userSlug, inviteToken, logger)
	if admitErr != nil {
		h.rejectAndClose(c, admitErr, logger)
		return
	}

	done := make(chan struct{})
	conn := &models.BoardConnection{
		ConnID:    connID,
		BoardSlug: boardSlug,
		UserSlug:  userSlug,
		ClientIP:  clientIP,
		Conn:      c,
		CreatedAt: time.Now(),
		WriteChan: make(chan models.ServerMessage, 100),
	}
	sess.conn = conn
	sess.logger = logger

	group := sess.board.GroupName()
	h.broadcaster.Join(group, conn)
	h.metrics.RecordWebSocketConnect()
	defer func() {
		close(done)
		h.broadcaster.Leave(group, connID)
		h.metrics.RecordWebSocketDisconnect()
	}()

	c.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.SetPongHandler(func(appData string) error {
		c.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	go h.pingLoop(conn, done)
	go h.writeLoop(conn)

	// Full board state on join, unicast to this connection only
	snapshot, err := h.store.Snapshot(ctx, boardSlug)
	if err != nil {
		h.sendError(sess, err)
		return
	}
	conn.SafeSend(models.ServerMessage{
		Code: models.CodeBoardLoaded,
		Data: snapshot,
	})

	h.readLoop(ctx, sess)
}

// admit resolves the user and board, rejects deactivated accounts, and
// verifies membership, redeeming a single-use invite token for
// non-members carrying one.
func (h *BoardSessionHandler) admit(ctx context.Context, boardSlug, userSlug, inviteToken string, logger *slog.Logger) (*session, *models.ClientError) {
	user, err := h.store.GetUserBySlug(ctx, userSlug)
	if err != nil {
		return nil, models.NewUserFailed(err)
	}
	if !user.IsActive {
		return nil, models.NewUserFailed(errors.New("user is deactivated"))
	}

	board, err := h.store.GetBoard(ctx, boardSlug)
	if err != nil {
		return nil, models.NewBoardFailed(err)
	}

	isMember, err := h.store.IsMember(ctx, boardSlug, userSlug)
	if err != nil {
		return nil, models.NewBoardFailed(err)
	}

	if !isMember {
		if inviteToken == "" {
			return nil, models.NewBoardAccessDenied()
		}
		if err := h.redeemInvite(ctx, board, user, inviteToken, logger); err != nil {
			return nil, models.NewJoinFailed(err)
		}
	}

	return &session{board: board, user: user}, nil
}

// redeemInvite joins the user via a single-use invite token. The token
// must resolve to a pending invitation on this board addressed to the
// user's email.
func (h *BoardSessionHandler) redeemInvite(ctx context.Context, board *models.Board, user *models.User, token string, logger *slog.Logger) error {
	invitation, err := h.store.LookupInviteToken(ctx, auth.HashInviteToken(token))
	if err != nil {
		return err
	}
	if invitation.BoardSlug != board.BoardSlug {
		return errors.New("invite token is for a different board")
	}
	if invitation.Email != user.Email {
		return errors.New("invite token is for a different email")
	}

	if err := h.store.CreateMembership(ctx, board.BoardSlug, user.UserSlug, models.RoleMember); err != nil {
		return err
	}
	if err := h.store.DeleteInvitation(ctx, invitation.InvitationID); err != nil {
		return err
	}

	logger.Info("Member joined via invite", "token_key", auth.InviteTokenKey(token))
	if err := h.store.LogActivity(ctx, board.BoardSlug, nil, models.CmdJoin, user.Name+" joined the board"); err != nil {
		logger.Error("Activity log failed", "error", err)
	}

	memberships, err := h.store.ListMemberships(ctx, board.BoardSlug)
	if err != nil {
		return err
	}
	return h.publish(ctx, board, models.ServerMessage{
		Code: models.CodeMembersSaved,
		Data: memberships,
	})
}

// rejectAndClose reports a connect-phase failure on the raw socket and
// closes it; the connection never joins a group.
func (h *BoardSessionHandler) rejectAndClose(c *websocket.Conn, cerr *models.ClientError, logger *slog.Logger) {
	logger.Error("Connection rejected", "code", cerr.Code, "error", cerr)
	if payload, err := json.Marshal(cerr.WSError()); err == nil {
		c.WriteMessage(websocket.TextMessage, payload)
	}
	c.Close()
}

// pingLoop sends periodic pings to keep the WebSocket connection alive
func (h *BoardSessionHandler) pingLoop(conn *models.BoardConnection, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.Mutex.Lock()
			if err := conn.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("⚠️ Ping failed for %s: %v", conn.ConnID, err)
				conn.Mutex.Unlock()
				return
			}
			conn.Mutex.Unlock()
		}
	}
}

// writeLoop serializes all writes to the socket through WriteChan.
func (h *BoardSessionHandler) writeLoop(conn *models.BoardConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in writeLoop: %v", r)
		}
	}()

	for msg := range conn.WriteChan {
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Printf("⚠️  Marshal failed for %s: %v", conn.ConnID, err)
			continue
		}
		if err := conn.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("❌ WebSocket write error for %s: %v", conn.ConnID, err)
			return
		}
	}
}

// readLoop is the command loop: decode, throttle, dispatch, and turn
// every failure into a unicast error without dropping the connection.
func (h *BoardSessionHandler) readLoop(ctx context.Context, sess *session) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in readLoop: %v", r)
		}
	}()

	conn := sess.conn
	for {
		_, raw, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("❌ WebSocket read error for %s: %v", conn.ConnID, err)
			}
			return
		}
		conn.Conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var envelope models.CommandEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			h.sendError(sess, models.NewInvalidContent(err, models.CmdNoCommand))
			continue
		}
		if envelope.Command == nil {
			h.sendError(sess, models.NewMissingCommand())
			continue
		}
		command := *envelope.Command

		if err := h.throttler.Allow(command, conn.ClientIP, conn.BoardSlug, conn.UserSlug); err != nil {
			h.sendError(sess, err)
			continue
		}

		if err := h.dispatch(ctx, sess, command, raw); err != nil {
			h.metrics.RecordBoardCommand(command, "error")
			h.sendError(sess, err)
			continue
		}
		h.metrics.RecordBoardCommand(command, "ok")
	}
}

// sendError unicasts an error to the session's connection. Expected
// conditions (throttled, duplicate name, invite preconditions) go out
// without a server-side error log; everything else is logged first.
func (h *BoardSessionHandler) sendError(sess *session, err error) {
	var cerr *models.ClientError
	if !errors.As(err, &cerr) {
		cerr = models.NewServerError(err)
	}

	if !cerr.Expected() {
		logger := sess.logger
		if cerr.Command != "" {
			logger = logging.WithCommand(logger, cerr.Command)
		}
		logger.Error("Command failed", "code", cerr.Code, "error", cerr)
	}

	msg := cerr.WSError()
	msg.User = sess.user.UserSlug
	sess.conn.SafeSend(msg)
}

// publish sends a group update to every connection on the board.
func (h *BoardSessionHandler) publish(ctx context.Context, board *models.Board, msg models.ServerMessage) error {
	if err := h.broadcaster.Publish(ctx, board.GroupName(), msg); err != nil {
		return err
	}
	h.metrics.RecordBroadcast()
	return nil
}
