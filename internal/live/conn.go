// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package live

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Socket timing.
const (
	WriteTimeout = 10 * time.Second
	PongTimeout  = 60 * time.Second
	PingInterval = PongTimeout * 9 / 10

	// MaxMessageBytes bounds one client message; picked images travel
	// base64-encoded, so this sits above the compressor's input limit.
	MaxMessageBytes = 28 << 20
)

// Upgrader is the websocket upgrader for live pages. The default origin
// check only accepts same-host pages.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Serve pumps messages between ws and s until either side stops, then
// closes both. It blocks until the connection is done.
func Serve(ctx context.Context, ws *websocket.Conn, s *Session, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	handleCtx, handleCancel := context.WithCancel(ctx)
	defer handleCancel()
	defer s.Close()
	defer ws.Close()

	ws.SetReadLimit(MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(PongTimeout))
	})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer handleCancel()

		ping := time.NewTicker(PingInterval)
		defer ping.Stop()

		for {
			select {
			case <-handleCtx.Done():
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(WriteTimeout))
				return
			case <-s.Done():
				return
			case msg := <-s.Out():
				_ = ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
				if err := ws.WriteJSON(msg); err != nil {
					logger.Debug("live write failed", "error", err)
					return
				}
			case <-ping.C:
				_ = ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	go func() {
		// Unblock ReadJSON when the writer or the caller gives up.
		<-handleCtx.Done()
		_ = ws.SetReadDeadline(time.Now())
	}()

	for {
		var msg Inbound
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, context.Canceled) && handleCtx.Err() == nil {
				logger.Debug("live read failed", "error", err)
			}
			break
		}
		if err := s.Handle(msg); errors.Is(err, ErrSessionClosed) {
			break
		}
	}

	handleCancel()
	<-writerDone
}
