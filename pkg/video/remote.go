package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/face-checkin/internal/log"
)

// Remote receives JPEG frames as binary websocket messages, e.g. from
// another kiosk's /ws/camera feed or a network camera bridge.
type Remote struct {
	buffer

	url string
	ws  *websocket.Conn
	wg  sync.WaitGroup
}

// DialRemote connects to a frame feed.
func DialRemote(ctx context.Context, url string) (*Remote, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("frame feed connect failed: %w", err)
	}

	r := &Remote{url: url, ws: ws}
	r.wg.Add(1)
	go r.readLoop()
	return r, nil
}

func (r *Remote) readLoop() {
	defer r.wg.Done()
	defer r.end()

	for {
		kind, msg, err := r.ws.ReadMessage()
		if err != nil {
			log.Info("frame feed closed", "url", r.url, "error", err)
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		img, _, err := image.Decode(bytes.NewReader(msg))
		if err != nil {
			log.Debug("frame feed decode failed", "error", err)
			continue
		}
		r.set(img)
	}
}

// Close disconnects from the feed and waits for the reader to exit.
func (r *Remote) Close() error {
	err := r.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	r.ws.Close()
	r.wg.Wait()
	return err
}
