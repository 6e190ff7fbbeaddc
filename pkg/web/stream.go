package web

import (
	"bufio"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
)

// StreamRun serves a run's event log as Server-Sent Events: stored history
// from the cursor first, then live events until the terminal event. Each SSE
// id carries the event's sequence, so a dropped client reconnects with
// ?cursor=<last id> and resumes without gaps or duplicates.
func (h *APIHandlers) StreamRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	reqCtx := c.RequestCtx()

	events, err := h.runService.Stream(reqCtx, id, c.Query("cursor"))
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	reqCtx.SetBodyStreamWriter(func(w *bufio.Writer) {
		for event := range events {
			payload, err := json.Marshal(event)
			if err != nil {
				return
			}

			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Sequence, event.Type, payload)

			if err := w.Flush(); err != nil {
				// Client went away; the service closes the channel once
				// reqCtx is done.
				return
			}
		}
	})

	return nil
}
