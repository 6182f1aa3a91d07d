package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"

	"learn-and-earn/internal/models"
)

const pingInterval = 30 * time.Second

type feedMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "stream balance updates until interrupted",
		Action: action("/dashboard", func(c *cli.Context, a *app) error {
			u, err := a.api.WebSocketURL()
			if err != nil {
				return err
			}

			conn, resp, err := websocket.DefaultDialer.DialContext(c.Context, u, nil)
			if err != nil {
				if resp != nil && (resp.StatusCode == 401 || resp.StatusCode == 403) {
					a.gate.Reject(resp.StatusCode)
				}
				return fmt.Errorf("connect balance feed: %w", err)
			}
			defer conn.Close()

			go func() {
				ticker := time.NewTicker(pingInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if err := conn.WriteJSON(feedMessage{Type: "PING"}); err != nil {
							return
						}
					case <-c.Context.Done():
						_ = conn.WriteMessage(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
						_ = conn.Close()
						return
					}
				}
			}()

			a.printf("Watching balance for %s (Ctrl+C to stop)\n", a.identity().Email)
			for {
				var msg feedMessage
				if err := conn.ReadJSON(&msg); err != nil {
					if c.Context.Err() != nil {
						return nil
					}
					return fmt.Errorf("balance feed closed: %w", err)
				}

				switch msg.Type {
				case "BALANCE_UPDATE":
					var update models.BalanceUpdate
					if err := json.Unmarshal(msg.Data, &update); err != nil {
						a.logger.Debug("Skipping malformed update", slog.Any("error", err))
						continue
					}
					a.printf("%s  balance %s  locked %s  tokens %d\n",
						update.At.Local().Format(time.TimeOnly),
						models.FormatTaka(update.Balance),
						models.FormatTaka(update.LockedBalance),
						update.Tokens)
				case "PONG":
				default:
					a.logger.Debug("Ignoring feed message", slog.String("type", msg.Type))
				}
			}
		}),
	}
}
