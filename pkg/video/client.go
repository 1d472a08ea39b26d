// Package video receives a camera stream over WebRTC and publishes decoded
// frames as the pipeline's latest frame.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"

	"github.com/teslashibe/go-realitywrite/internal/log"
	"github.com/teslashibe/go-realitywrite/pkg/frame"
)

// Client connects to a GStreamer webrtcsink producer and keeps the latest
// decoded frame. It implements frame.Source.
type Client struct {
	config  Config
	logger  *slog.Logger
	latest  *frame.Latest
	decoder *Decoder

	ws   *websocket.Conn
	wsMu sync.Mutex
	pc   *webrtc.PeerConnection

	peerID     string
	producerID string
	sessionID  atomic.Value // string

	trackReady chan struct{}
	readyOnce  sync.Once
	closed     atomic.Bool
	decodeErrs atomic.Uint64
}

// NewClient creates an unconnected client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("video: invalid config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Component("video")
	}
	c := &Client{
		config:     cfg,
		logger:     cfg.Logger,
		latest:     frame.NewLatest(),
		decoder:    NewDecoder(cfg.FFmpegPath),
		trackReady: make(chan struct{}),
	}
	c.sessionID.Store("")
	return c, nil
}

// Connect performs signalling and waits for the video track.
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	if err := c.handshake(ctx); err != nil {
		return err
	}
	if err := c.createPeerConnection(); err != nil {
		return fmt.Errorf("video: peer connection: %w", err)
	}
	if err := c.send(envelope{Type: msgStartSession, PeerID: c.producerID}); err != nil {
		return fmt.Errorf("video: start session: %w", err)
	}

	go c.handleSignalling()

	select {
	case <-c.trackReady:
		c.logger.Info("video connected", "producer", c.producerID)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("video: waiting for track: %w", ctx.Err())
	}
}

// handshake dials the signalling server, reads the welcome and finds the
// producer.
func (c *Client) handshake(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.ConnectTimeout}
	ws, _, err := dialer.DialContext(ctx, c.config.SignallingURL, nil)
	if err != nil {
		return fmt.Errorf("video: signalling connect: %w", err)
	}
	c.ws = ws

	deadline, _ := ctx.Deadline()
	ws.SetReadDeadline(deadline)
	defer ws.SetReadDeadline(time.Time{})

	_, msg, err := ws.ReadMessage()
	if err != nil {
		return fmt.Errorf("video: welcome: %w", err)
	}
	if c.peerID, err = parseWelcome(msg); err != nil {
		return fmt.Errorf("video: welcome: %w", err)
	}
	c.logger.Debug("signalling welcome", "peer", c.peerID)

	if err := c.send(envelope{Type: msgList}); err != nil {
		return fmt.Errorf("video: list producers: %w", err)
	}
	_, msg, err = ws.ReadMessage()
	if err != nil {
		return fmt.Errorf("video: list producers: %w", err)
	}
	if c.producerID, err = selectProducer(msg, c.config.ProducerName); err != nil {
		return fmt.Errorf("video: %w", err)
	}
	return nil
}

func (c *Client) createPeerConnection() error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}
	c.pc = pc

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Info("track received", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go c.handleVideoTrack(track)
		}
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		sid := c.sessionID.Load().(string)
		if sid == "" {
			return
		}
		if err := c.send(candidateMessage(sid, candidate.ToJSON())); err != nil {
			c.logger.Warn("send ICE candidate", "error", err)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.logger.Info("connection state", "state", state.String())
	})

	return nil
}

func (c *Client) handleSignalling() {
	for !c.closed.Load() {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.logger.Warn("signalling read", "error", err)
			}
			return
		}

		var msg peerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("signalling decode", "error", err)
			continue
		}

		switch msg.Type {
		case msgSessionStarted:
			c.sessionID.Store(msg.SessionID)
		case msgPeer:
			c.handlePeerMessage(msg)
		case msgEndSession:
			c.logger.Info("session ended by producer")
			return
		}
	}
}

func (c *Client) handlePeerMessage(msg peerMessage) {
	if offer, ok := msg.offer(); ok {
		if err := c.answer(offer); err != nil {
			c.logger.Error("answer offer", "error", err)
		}
	}
	if cand, ok := msg.candidate(); ok {
		if err := c.pc.AddICECandidate(cand); err != nil {
			c.logger.Debug("add ICE candidate", "error", err)
		}
	}
}

func (c *Client) answer(offer webrtc.SessionDescription) error {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return err
	}
	return c.send(answerMessage(c.sessionID.Load().(string), answer))
}

func (c *Client) send(v any) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	return c.ws.WriteJSON(v)
}

// handleVideoTrack depacketizes RTP into NAL units and decodes a frame at
// most once per DecodeInterval.
func (c *Client) handleVideoTrack(track *webrtc.TrackRemote) {
	c.readyOnce.Do(func() { close(c.trackReady) })

	var (
		depacketizer codecs.H264Packet
		asm          assembler
		lastDecode   time.Time
	)

	for !c.closed.Load() {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if !c.closed.Load() {
				c.logger.Warn("track read", "error", err)
			}
			return
		}

		nal, err := depacketizer.Unmarshal(pkt.Payload)
		if err != nil || len(nal) == 0 {
			continue
		}
		asm.push(nal)

		if !pkt.Marker || time.Since(lastDecode) < c.config.DecodeInterval {
			continue
		}
		lastDecode = time.Now()
		c.decode(asm.chunk())
	}
}

func (c *Client) decode(chunk []byte) {
	if chunk == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.DecodeTimeout)
	defer cancel()

	data, err := c.decoder.Decode(ctx, chunk)
	if err != nil {
		n := c.decodeErrs.Add(1)
		if !errors.Is(err, ErrNoPicture) && (n == 1 || n%50 == 0) {
			c.logger.Debug("decode failed", "error", err, "count", n)
		}
		return
	}

	f, err := frame.FromJPEG(data, time.Now())
	if err != nil {
		return
	}
	c.latest.Publish(f)
}

// CurrentFrame returns the most recently decoded frame.
func (c *Client) CurrentFrame() (*frame.Frame, bool) {
	return c.latest.CurrentFrame()
}

// Stats returns publication counters.
func (c *Client) Stats() frame.Stats {
	return c.latest.Stats()
}

// Close tears down the peer connection and signalling socket.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	var errs []error
	if c.pc != nil {
		errs = append(errs, c.pc.Close())
	}
	if c.ws != nil {
		errs = append(errs, c.ws.Close())
	}
	return errors.Join(errs...)
}
