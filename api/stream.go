package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/quantacore/quanta/job"
	"github.com/quantacore/quanta/middleware"
)

// handshakeTimeout bounds the auth exchange on a fresh stream. The stream
// itself is bounded only by the caller's context.
const handshakeTimeout = 10 * time.Second

// LongPollFinal implements job.Transport. It prefers the live WebSocket
// stream and degrades to HTTP status polling when the stream cannot be
// established or drops. The caller's context carries the wait bound, so
// timeout itself is not consulted here.
func (c *Client) LongPollFinal(ctx context.Context, jobID string, timeout, interval time.Duration, ex *job.Exchange) (job.StatusUpdate, error) {
	call := &middleware.Call{Method: "watch status", Path: "/v1/jobs/{id}/live", JobID: jobID, Streaming: true}

	var upd job.StatusUpdate
	err := c.chain(ctx, call, func(ctx context.Context) error {
		var werr error
		upd, werr = c.watchLive(ctx, jobID, ex)
		return werr
	})
	if err == nil {
		return upd, nil
	}
	if ctx.Err() != nil {
		return job.StatusUpdate{}, ctx.Err()
	}

	c.logger.Debug("live stream unavailable, polling instead",
		slog.String("job_id", jobID),
		slog.String("error", err.Error()))

	return c.pollFinal(ctx, jobID, interval, ex)
}

// watchLive dials the job's live stream, authenticates, then relays
// status frames into ex until a final status arrives.
func (c *Client) watchLive(ctx context.Context, jobID string, ex *job.Exchange) (job.StatusUpdate, error) {
	wsURL, err := c.liveURL(jobID)
	if err != nil {
		return job.StatusUpdate{}, err
	}

	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return job.StatusUpdate{}, fmt.Errorf("dial live stream: %w", err)
	}
	defer conn.Close()

	// net.Conn reads do not take contexts; close the conn to unblock them
	// when the caller gives up.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	codec, session, err := c.authenticate(conn)
	if err != nil {
		return job.StatusUpdate{}, err
	}

	c.logger.Debug("live stream connected",
		slog.String("job_id", jobID),
		slog.String("session_id", session),
		slog.String("format", codec.Name()))

	for {
		data, _, err := wsutil.ReadServerData(conn)
		if err != nil {
			if ctx.Err() != nil {
				return job.StatusUpdate{}, ctx.Err()
			}
			return job.StatusUpdate{}, fmt.Errorf("read live stream: %w", err)
		}

		f, err := codec.Decode(data)
		if err != nil {
			c.logger.Warn("dropping malformed live frame",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
			continue
		}

		switch f.Type {
		case FramePing:
			if err := c.writeFrame(conn, codec, &Frame{Type: FramePong}); err != nil {
				return job.StatusUpdate{}, fmt.Errorf("write pong: %w", err)
			}
		case FrameError:
			msg := "stream error"
			if f.Error != nil {
				msg = f.Error.Message
			}
			return job.StatusUpdate{}, fmt.Errorf("live stream: %s", msg)
		case FrameStatus:
			st, perr := job.ParseStatus(f.Status)
			if perr != nil {
				return job.StatusUpdate{}, perr
			}

			upd := job.StatusUpdate{Status: f.Status, Queue: f.Queue.QueueInfo()}
			if ex != nil {
				ex.Publish(job.Snapshot{Status: st, Queue: upd.Queue})
			}
			if st.IsFinal() {
				return upd, nil
			}
		}
	}
}

// authenticate runs the stream handshake. The auth frame and its ready
// reply are always JSON; the reply fixes the codec for everything after.
func (c *Client) authenticate(conn net.Conn) (Codec, string, error) {
	_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer func() { _ = conn.SetDeadline(time.Time{}) }()

	auth := &Frame{Type: FrameAuth, Token: c.token, Format: c.format}
	data, err := json.Marshal(auth)
	if err != nil {
		return nil, "", fmt.Errorf("encode auth frame: %w", err)
	}
	if err := wsutil.WriteClientText(conn, data); err != nil {
		return nil, "", fmt.Errorf("write auth frame: %w", err)
	}

	raw, err := wsutil.ReadServerText(conn)
	if err != nil {
		return nil, "", fmt.Errorf("read auth reply: %w", err)
	}

	var reply Frame
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, "", fmt.Errorf("decode auth reply: %w", err)
	}

	switch reply.Type {
	case FrameReady:
	case FrameError:
		msg := "authentication rejected"
		if reply.Error != nil {
			msg = reply.Error.Message
		}
		return nil, "", fmt.Errorf("live stream auth: %s", msg)
	default:
		return nil, "", fmt.Errorf("unexpected %s frame during auth", reply.Type)
	}

	codec := c.codec
	if reply.Format != "" && reply.Format != codec.Name() {
		negotiated, err := GetCodec(reply.Format)
		if err != nil {
			return nil, "", fmt.Errorf("auth reply: %w", err)
		}
		codec = negotiated
	}

	return codec, reply.SessionID, nil
}

// writeFrame encodes and sends one frame in the negotiated format.
func (c *Client) writeFrame(conn net.Conn, codec Codec, f *Frame) error {
	data, err := codec.Encode(f)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", f.Type, err)
	}
	if codec.Binary() {
		return wsutil.WriteClientBinary(conn, data)
	}

	return wsutil.WriteClientText(conn, data)
}

// liveURL derives the WebSocket endpoint for a job's live stream from the
// client's base URL.
func (c *Client) liveURL(jobID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/jobs/" + url.PathEscape(jobID) + "/live"

	return u.String(), nil
}

// pollFinal is the HTTP fallback: poll the status endpoint at interval
// until the job reaches a final status.
func (c *Client) pollFinal(ctx context.Context, jobID string, interval time.Duration, ex *job.Exchange) (job.StatusUpdate, error) {
	if interval <= 0 {
		interval = c.pollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		upd, err := c.QueryStatus(ctx, jobID)
		if err != nil {
			return job.StatusUpdate{}, err
		}

		st, err := job.ParseStatus(upd.Status)
		if err != nil {
			return job.StatusUpdate{}, err
		}
		if ex != nil {
			ex.Publish(job.Snapshot{Status: st, Queue: upd.Queue})
		}
		if st.IsFinal() {
			return upd, nil
		}

		select {
		case <-ctx.Done():
			return job.StatusUpdate{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
