package controller

import (
	"log"

	"github.com/gofiber/websocket/v2"

	"warmbox/worker"
)

// HandleWarmupProgressWS streams warmup cycle summaries to connected
// dashboards as they complete.
func HandleWarmupProgressWS(hub *worker.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		ch := hub.Subscribe()
		defer hub.Unsubscribe(ch)

		// Drain client frames so we notice a disconnect.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case result, ok := <-ch:
				if !ok {
					return
				}
				if err := c.WriteJSON(result); err != nil {
					log.Printf("Error writing JSON: %v", err)
					return
				}
			}
		}
	}
}
