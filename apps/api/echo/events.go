package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/events"
)

const eventBuffer = 32

var heartbeatInterval = 25 * time.Second

type eventsAPI struct {
	bus    *events.Bus
	logger core.Logger
}

func registerEventsAPI(g *echo.Group, tokens *tokenIssuer, deps Deps) {
	api := eventsAPI{bus: deps.Bus, logger: deps.Logger}
	g.GET("/events", api.stream, queryTokenMiddleware, tokens.middleware())
}

// queryTokenMiddleware accepts the token as ?token= since EventSource cannot set headers.
func queryTokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		if tok := ctx.QueryParam("token"); tok != "" && req.Header.Get(echo.HeaderAuthorization) == "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
		}
		return next(ctx)
	}
}

// visible reports whether msg belongs on the stream of actor.
// Admins see every message, other accounts only the ones scoped to them.
func visible(actor core.Actor, msg events.Message) bool {
	if actor.IsAdmin {
		return true
	}
	return msg.AccountID != "" && msg.AccountID == actor.AccountID
}

func (api *eventsAPI) stream(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	msgs := make(chan events.Message, eventBuffer)
	unwatch := api.bus.Watch(func(_ context.Context, msg events.Message) {
		if !visible(actor, msg) {
			return
		}
		select {
		case msgs <- msg:
		default:
			api.logger.Warn(fmt.Sprintf("events: dropping %s for slow stream", msg.Topic), actor)
		}
	})
	defer unwatch()

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	if _, err = fmt.Fprint(res, ": connected\n\n"); err != nil {
		return nil
	}
	res.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	done := ctx.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case <-heartbeat.C:
			if _, err = fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
		case msg := <-msgs:
			if _, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", msg.Topic, msg.Payload); err != nil {
				return nil
			}
		}
		res.Flush()
	}
}
