package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/common"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

var validate = validator.New()

const heartbeatInterval = 15 * time.Second

// Pipeline is the slice of the coordinator the HTTP layer drives.
type Pipeline interface {
	Input(query string)
	Select(city weather.City) string
	State() weather.ViewState
	Subscribe() (<-chan weather.ViewState, func())
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, pipeline Pipeline, lookup weather.LocationLookup) {
	v1 := app.Group("/api/v1")

	v1.Get("/cities", func(c *fiber.Ctx) error {
		q := c.Query("q")
		if common.QueryLen(q) < weather.MinQueryLength {
			return c.JSON([]weather.City{})
		}
		return c.JSON(lookup.Search(c.UserContext(), q))
	})

	v1.Post("/search", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		pipeline.Input(req.Query)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"query": req.Query})
	})

	v1.Post("/select", func(c *fiber.Ctx) error {
		var req selectRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		id := pipeline.Select(req.toCity())
		if id == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "pipeline is shutting down")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"selectionId": id})
	})

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(pipeline.State())
	})

	v1.Get("/events", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		// Subscribe inside the writer so a stream that never starts leaves nothing behind.
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			states, unsubscribe := pipeline.Subscribe()
			defer unsubscribe()
			streamStates(w, states, heartbeatInterval)
		}))
		return nil
	})
}

// streamStates writes each state as an SSE frame until the channel closes or
// the client goes away.
func streamStates(w *bufio.Writer, states <-chan weather.ViewState, heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-states:
			if !ok {
				return
			}
			data, err := json.Marshal(st)
			if err != nil {
				return
			}
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
		}
		// A flush error means the client disconnected.
		if err := w.Flush(); err != nil {
			return
		}
	}
}

type searchRequest struct {
	Query string `json:"query" validate:"max=100"`
}

// selectRequest holds the city a client picked from the options.
type selectRequest struct {
	Name    string   `json:"name" validate:"required"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lon     *float64 `json:"lon" validate:"required,min=-180,max=180"`
}

func (r selectRequest) toCity() weather.City {
	return weather.City{
		Name:    r.Name,
		Country: r.Country,
		Lat:     *r.Lat,
		Lon:     *r.Lon,
	}
}
