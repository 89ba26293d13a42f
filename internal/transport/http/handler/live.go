package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/flisboa999/guiaturismo/internal/app"
	"github.com/flisboa999/guiaturismo/internal/liveview"
	"github.com/flisboa999/guiaturismo/internal/observability"
	"github.com/flisboa999/guiaturismo/internal/store"
	"github.com/flisboa999/guiaturismo/internal/transport/http/middleware"
)

const (
	FramePatches  = "patches"
	FrameRole     = "role"
	FrameControl  = "control"
	FrameError    = "error"
	FrameIdentity = "identity"
	FrameSignout  = "signout"
)

const (
	liveReadTimeout  = 120 * time.Second
	liveWriteTimeout = 10 * time.Second
	livePingInterval = 30 * time.Second
)

// Subscriber opens live queries over the chat collection.
type Subscriber interface {
	Subscribe(ctx context.Context, q store.Query) (*store.Subscription, error)
}

type PatchesFrame struct {
	Type    string           `json:"type"`
	Patches []liveview.Patch `json:"patches"`
}

type RoleFrame struct {
	Type  string           `json:"type"`
	State app.SessionState `json:"state"`
}

type ControlFrame struct {
	Type      string           `json:"type"`
	ControlID string           `json:"controlId"`
	State     app.ControlState `json:"state"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	// Fatal frames are the last thing written before the server closes.
	Fatal bool `json:"fatal,omitempty"`
}

type ClientFrame struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

type LiveHandler struct {
	turns      Subscriber
	identifier middleware.Identifier
	roles      *app.RoleGate
	controls   *liveview.ControlRelay
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

func NewLiveHandler(
	turns Subscriber,
	identifier middleware.Identifier,
	roles *app.RoleGate,
	controls *liveview.ControlRelay,
	metrics *observability.Metrics,
) *LiveHandler {
	return &LiveHandler{
		turns:      turns,
		identifier: identifier,
		roles:      roles,
		controls:   controls,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOrigin,
		},
	}
}

// sameOrigin allows non-browser clients that omit Origin.
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Serve runs one live view connection: a subscription feeding a View whose
// patches, plus role and control frames, go out through a single writer.
func (h *LiveHandler) Serve(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	controlID := strings.TrimSpace(c.Query("control_id"))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	// Unblock the read loop once either side gives up.
	stopClose := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopClose()

	sub, err := h.turns.Subscribe(ctx, store.Query{Limit: limit})
	if err != nil {
		log.WithError(err).Error("open live subscription failed")
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		_ = conn.WriteJSON(ErrorFrame{Type: FrameError, Code: string(app.CodeInternal), Message: "subscribe failed", Fatal: true})
		return
	}

	h.metrics.LiveSubscribers.Inc()
	defer h.metrics.LiveSubscribers.Dec()

	outbound := make(chan any, 256)
	// offer never blocks; callers run on other goroutines such as a submission.
	offer := func(frame any) {
		select {
		case outbound <- frame:
		default:
			h.metrics.WSMessages.WithLabelValues("outbound", "drop_full").Inc()
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, cancel, conn, outbound)
	}()

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		view := liveview.NewView()
		for batch := range sub.Batches() {
			patches := view.Apply(batch)
			if len(patches) == 0 {
				continue
			}
			select {
			case outbound <- PatchesFrame{Type: FramePatches, Patches: patches}:
			case <-ctx.Done():
				return
			}
		}
		if err := sub.Err(); err != nil {
			select {
			case outbound <- ErrorFrame{Type: FrameError, Code: "lagging", Message: err.Error(), Fatal: true}:
			case <-ctx.Done():
			}
		}
	}()

	session := app.NewSessionContext(h.roles, func(state app.SessionState) {
		offer(RoleFrame{Type: FrameRole, State: state})
	})
	session.OnIdentityChange(h.identify(c.Query("token")))

	if controlID != "" {
		stop := h.controls.Watch(controlID, func(state app.ControlState) {
			offer(ControlFrame{Type: FrameControl, ControlID: controlID, State: state})
		})
		defer stop()
	}

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			offer(ErrorFrame{Type: FrameError, Code: "invalid_client_message", Message: err.Error()})
			continue
		}
		h.metrics.WSMessages.WithLabelValues("inbound", frame.Type).Inc()

		switch frame.Type {
		case FrameIdentity:
			identity := h.identify(frame.Token)
			if identity == nil {
				offer(ErrorFrame{Type: FrameError, Code: string(app.CodeUnauthenticated), Message: "invalid or expired token"})
			}
			session.OnIdentityChange(identity)
		case FrameSignout:
			session.OnIdentityChange(nil)
		default:
			offer(ErrorFrame{Type: FrameError, Code: "invalid_client_message", Message: "unknown frame type " + frame.Type})
		}
	}

	cancel()
	<-pumpDone
	<-writerDone
}

func (h *LiveHandler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, outbound <-chan any) {
	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout)); err != nil {
				cancel()
				return
			}
		case frame := <-outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				log.WithError(err).Debug("live write failed")
				cancel()
				return
			}
			h.metrics.WSMessages.WithLabelValues("outbound", frameType(frame)).Inc()
			if e, ok := frame.(ErrorFrame); ok && e.Fatal {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, e.Code),
					time.Now().Add(liveWriteTimeout))
				cancel()
				return
			}
		}
	}
}

func (h *LiveHandler) identify(token string) *app.Identity {
	token = strings.TrimSpace(token)
	if token == "" || h.identifier == nil {
		return nil
	}
	identity, err := h.identifier.Identify(token)
	if err != nil {
		return nil
	}
	return identity
}

func frameType(frame any) string {
	switch f := frame.(type) {
	case PatchesFrame:
		return f.Type
	case RoleFrame:
		return f.Type
	case ControlFrame:
		return f.Type
	case ErrorFrame:
		return f.Type
	default:
		return "unknown"
	}
}
