// Package video receives a remote camera stream over WebRTC using GStreamer
// webrtcsink signalling and exposes the latest frame as JPEG.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// ErrNoFrame is returned by CurrentFrame before the first frame is decoded.
var ErrNoFrame = errors.New("video: no frame available")

// Config holds client configuration.
type Config struct {
	// SignallingURL is the webrtcsink signalling server, e.g. ws://camera.local:8443.
	SignallingURL string

	// PeerName is the producer's meta name to subscribe to.
	PeerName string

	// DecodeInterval limits how often H264 is decoded to JPEG.
	DecodeInterval time.Duration

	// ConnectTimeout bounds signalling and the wait for the first track.
	ConnectTimeout time.Duration

	JPEGQuality int
	Logger      *slog.Logger
}

// DefaultConfig returns defaults for a local webrtcsink producer.
func DefaultConfig() Config {
	return Config{
		PeerName:       "camera",
		DecodeInterval: 100 * time.Millisecond,
		ConnectTimeout: 15 * time.Second,
		JPEGQuality:    3,
		Logger:         slog.Default(),
	}
}

// Client connects to a webrtcsink producer and decodes its video track.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	decoder *Decoder

	mu      sync.Mutex
	ws      *websocket.Conn
	pc      *webrtc.PeerConnection
	cancel  context.CancelFunc
	running bool

	wsMu       sync.Mutex
	myPeerID   string
	producerID string
	sessionID  string

	trackReady chan struct{}
}

// NewClient creates a stopped client.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.PeerName == "" {
		cfg.PeerName = def.PeerName
	}
	if cfg.DecodeInterval <= 0 {
		cfg.DecodeInterval = def.DecodeInterval
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = def.JPEGQuality
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return &Client{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "video"),
		decoder: NewDecoder(cfg.DecodeInterval, cfg.JPEGQuality),
	}
}

// Start connects and waits for the video track. Starting a running client is
// a no-op.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	if c.cfg.SignallingURL == "" {
		return errors.New("video: signalling URL required")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.trackReady = make(chan struct{}, 1)

	if err := c.connect(ctx); err != nil {
		cancel()
		c.closeLocked()
		return err
	}

	c.cancel = cancel
	c.running = true
	go c.handleSignalling(ctx, c.ws, c.pc)

	select {
	case <-c.trackReady:
		c.logger.Info("video connected", "producer", c.producerID)
	case <-time.After(c.cfg.ConnectTimeout):
		c.stopLocked()
		return fmt.Errorf("video: timeout waiting for track")
	case <-ctx.Done():
		c.stopLocked()
		return ctx.Err()
	}
	return nil
}

// Stop closes the peer connection and signalling.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// CurrentFrame returns the latest decoded frame as JPEG.
func (c *Client) CurrentFrame() ([]byte, error) {
	frame := c.decoder.Latest()
	if frame == nil {
		return nil, ErrNoFrame
	}
	return frame, nil
}

func (c *Client) stopLocked() {
	if !c.running {
		return
	}
	c.running = false
	c.cancel()
	c.closeLocked()
	c.decoder.Reset()
	c.logger.Info("video stopped")
}

func (c *Client) closeLocked() {
	if c.pc != nil {
		_ = c.pc.Close()
		c.pc = nil
	}
	c.wsMu.Lock()
	if c.ws != nil {
		_ = c.ws.Close()
		c.ws = nil
	}
	c.wsMu.Unlock()
}

func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	ws, _, err := dialer.DialContext(ctx, c.cfg.SignallingURL, nil)
	if err != nil {
		return fmt.Errorf("signalling connect: %w", err)
	}
	c.ws = ws

	if err := c.waitForWelcome(); err != nil {
		return fmt.Errorf("welcome: %w", err)
	}
	if err := c.findProducer(); err != nil {
		return fmt.Errorf("find producer: %w", err)
	}
	if err := c.createPeerConnection(ctx); err != nil {
		return fmt.Errorf("peer connection: %w", err)
	}
	if err := c.send(signal{Type: "startSession", PeerID: c.producerID}); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// signal is a webrtcsink signalling message.
type signal struct {
	Type      string          `json:"type"`
	PeerID    string          `json:"peerId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	SDP       *sdpMessage     `json:"sdp,omitempty"`
	ICE       *iceMessage     `json:"ice,omitempty"`
	Producers []producer      `json:"producers,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

type sdpMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type iceMessage struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
}

type producer struct {
	ID   string            `json:"id"`
	Meta map[string]string `json:"meta"`
}

func (c *Client) read(timeout time.Duration) (signal, error) {
	var msg signal
	_ = c.ws.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = c.ws.SetReadDeadline(time.Time{}) }()

	if err := c.ws.ReadJSON(&msg); err != nil {
		return msg, err
	}
	return msg, nil
}

func (c *Client) send(msg signal) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == nil {
		return errors.New("video: signalling closed")
	}
	return c.ws.WriteJSON(msg)
}

func (c *Client) waitForWelcome() error {
	msg, err := c.read(10 * time.Second)
	if err != nil {
		return err
	}
	if msg.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %s", msg.Type)
	}
	c.myPeerID = msg.PeerID
	return nil
}

func (c *Client) findProducer() error {
	if err := c.send(signal{Type: "list"}); err != nil {
		return err
	}

	msg, err := c.read(5 * time.Second)
	if err != nil {
		return err
	}

	for _, p := range msg.Producers {
		if p.Meta["name"] == c.cfg.PeerName {
			c.producerID = p.ID
			return nil
		}
	}
	return fmt.Errorf("producer %q not found in %d producers", c.cfg.PeerName, len(msg.Producers))
}

func (c *Client) createPeerConnection(ctx context.Context) error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}
	c.pc = pc

	if _, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Debug("track received", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go c.handleVideoTrack(ctx, track)
		}
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			c.sendICECandidate(candidate)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.logger.Debug("connection state", "state", state.String())
	})

	return nil
}

func (c *Client) handleSignalling(ctx context.Context, ws *websocket.Conn, pc *webrtc.PeerConnection) {
	for {
		var msg signal
		if err := ws.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("signalling closed", "error", err)
			}
			return
		}

		switch msg.Type {
		case "sessionStarted":
			c.wsMu.Lock()
			c.sessionID = msg.SessionID
			c.wsMu.Unlock()
		case "peer":
			c.handlePeerMessage(pc, msg)
		case "endSession":
			c.logger.Info("producer ended session")
			return
		case "error":
			c.logger.Warn("signalling error", "details", string(msg.Details))
		}
	}
}

func (c *Client) handlePeerMessage(pc *webrtc.PeerConnection, msg signal) {
	if msg.SDP != nil && msg.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: msg.SDP.SDP}
		if err := pc.SetRemoteDescription(offer); err != nil {
			c.logger.Error("set remote description", "error", err)
			return
		}

		answer, err := pc.CreateAnswer(nil)
		if err != nil {
			c.logger.Error("create answer", "error", err)
			return
		}
		if err := pc.SetLocalDescription(answer); err != nil {
			c.logger.Error("set local description", "error", err)
			return
		}

		if err := c.send(signal{
			Type:      "peer",
			SessionID: c.session(),
			SDP:       &sdpMessage{Type: answer.Type.String(), SDP: answer.SDP},
		}); err != nil {
			c.logger.Error("send answer", "error", err)
		}
	}

	if msg.ICE != nil {
		if err := pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     msg.ICE.Candidate,
			SDPMid:        msg.ICE.SDPMid,
			SDPMLineIndex: msg.ICE.SDPMLineIndex,
		}); err != nil {
			c.logger.Debug("add ICE candidate", "error", err)
		}
	}
}

func (c *Client) session() string {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	return c.sessionID
}

func (c *Client) sendICECandidate(candidate *webrtc.ICECandidate) {
	session := c.session()
	if session == "" {
		return
	}
	init := candidate.ToJSON()
	if err := c.send(signal{
		Type:      "peer",
		SessionID: session,
		ICE: &iceMessage{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		},
	}); err != nil {
		c.logger.Debug("send ICE candidate", "error", err)
	}
}

func (c *Client) handleVideoTrack(ctx context.Context, track *webrtc.TrackRemote) {
	select {
	case c.trackReady <- struct{}{}:
	default:
	}

	var au AccessUnit
	for ctx.Err() == nil {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if nal := au.Push(pkt); nal != nil {
			if _, err := c.decoder.Decode(nal); err != nil {
				c.logger.Debug("decode failed", "error", err)
			}
		}
	}
}

// AccessUnit accumulates H264 RTP payloads into Annex B byte stream and
// returns the buffered data once a packet with the marker bit completes
// an access unit.
type AccessUnit struct {
	buf []byte
}

var startCode = []byte{0, 0, 0, 1}

// Push adds one RTP packet. It returns the completed access unit, or nil.
func (a *AccessUnit) Push(pkt *rtp.Packet) []byte {
	payload := pkt.Payload
	if len(payload) == 0 {
		return nil
	}

	switch nalType := payload[0] & 0x1f; {
	case nalType >= 1 && nalType <= 23:
		a.buf = append(a.buf, startCode...)
		a.buf = append(a.buf, payload...)

	case nalType == 24: // STAP-A
		for p := payload[1:]; len(p) > 2; {
			size := int(p[0])<<8 | int(p[1])
			p = p[2:]
			if size > len(p) {
				break
			}
			a.buf = append(a.buf, startCode...)
			a.buf = append(a.buf, p[:size]...)
			p = p[size:]
		}

	case nalType == 28 && len(payload) > 2: // FU-A
		header := payload[1]
		if header&0x80 != 0 {
			a.buf = append(a.buf, startCode...)
			a.buf = append(a.buf, payload[0]&0xe0|header&0x1f)
		}
		a.buf = append(a.buf, payload[2:]...)
	}

	if !pkt.Marker {
		return nil
	}
	out := a.buf
	a.buf = nil
	return out
}
