package video

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signallingServer answers welcome and list, then records what it receives.
func signallingServer(t *testing.T, producers []producer, received chan<- signal) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()

		if err := ws.WriteJSON(signal{Type: "welcome", PeerID: "consumer-1"}); err != nil {
			return
		}
		for {
			var msg signal
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
			if msg.Type == "list" {
				_ = ws.WriteJSON(signal{Type: "list", Producers: producers})
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectStartsSession(t *testing.T) {
	received := make(chan signal, 8)
	srv := signallingServer(t, []producer{
		{ID: "other", Meta: map[string]string{"name": "doorbell"}},
		{ID: "p-42", Meta: map[string]string{"name": "camera"}},
	}, received)

	c := NewClient(Config{SignallingURL: wsURL(srv)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.connect(ctx))
	defer c.closeLocked()

	assert.Equal(t, "consumer-1", c.myPeerID)
	assert.Equal(t, "p-42", c.producerID)

	var types []string
	for len(types) < 2 {
		select {
		case msg := <-received:
			types = append(types, msg.Type)
			if msg.Type == "startSession" {
				assert.Equal(t, "p-42", msg.PeerID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for signalling")
		}
	}
	assert.Equal(t, []string{"list", "startSession"}, types)
}

func TestConnectMissingProducer(t *testing.T) {
	srv := signallingServer(t, []producer{{ID: "x", Meta: map[string]string{"name": "doorbell"}}}, make(chan signal, 8))

	c := NewClient(Config{SignallingURL: wsURL(srv), PeerName: "camera"})
	err := c.connect(context.Background())
	defer c.closeLocked()

	require.Error(t, err)
	assert.Contains(t, err.Error(), `producer "camera" not found`)
}

func TestStartRequiresURL(t *testing.T) {
	c := NewClient(Config{})
	assert.Error(t, c.Start(context.Background()))

	_, err := c.CurrentFrame()
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestAccessUnitSingleNAL(t *testing.T) {
	var au AccessUnit
	assert.Nil(t, au.Push(&rtp.Packet{Payload: []byte{0x67, 1, 2}}))
	out := au.Push(&rtp.Packet{Header: rtp.Header{Marker: true}, Payload: []byte{0x65, 3}})
	assert.Equal(t, []byte{0, 0, 0, 1, 0x67, 1, 2, 0, 0, 0, 1, 0x65, 3}, out)
}

func TestAccessUnitSTAPA(t *testing.T) {
	var au AccessUnit
	payload := []byte{24, 0, 2, 0x67, 9, 0, 1, 0x68}
	out := au.Push(&rtp.Packet{Header: rtp.Header{Marker: true}, Payload: payload})
	assert.Equal(t, []byte{0, 0, 0, 1, 0x67, 9, 0, 0, 0, 1, 0x68}, out)
}

func TestAccessUnitFUA(t *testing.T) {
	var au AccessUnit
	// FU indicator NRI=3 type 28, FU header start + type 5.
	assert.Nil(t, au.Push(&rtp.Packet{Payload: []byte{0x7c, 0x85, 1, 2}}))
	assert.Nil(t, au.Push(&rtp.Packet{Payload: []byte{0x7c, 0x05, 3}}))
	out := au.Push(&rtp.Packet{Header: rtp.Header{Marker: true}, Payload: []byte{0x7c, 0x45, 4}})
	assert.Equal(t, []byte{0, 0, 0, 1, 0x65, 1, 2, 3, 4}, out)
	assert.True(t, hasIDR(out))
}

func TestDecoderRateLimitAndGOP(t *testing.T) {
	d := NewDecoder(time.Hour, 3)
	var inputs [][]byte
	d.run = func(ctx context.Context, input []byte, args ...string) ([]byte, error) {
		inputs = append(inputs, input)
		return []byte("jpeg"), nil
	}

	idr := []byte{0, 0, 0, 1, 0x65, 1}
	p := []byte{0, 0, 0, 1, 0x41, 2}

	frame, err := d.Decode(idr)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), frame)
	assert.Equal(t, []byte("jpeg"), d.Latest())

	frame, err = d.Decode(p)
	require.NoError(t, err)
	assert.Nil(t, frame)
	require.Len(t, inputs, 1)

	d.interval = 0
	_, err = d.Decode(p)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, append(append(append([]byte{}, idr...), p...), p...), inputs[1])

	_, err = d.Decode(idr)
	require.NoError(t, err)
	assert.Equal(t, idr, inputs[2])

	d.Reset()
	assert.Nil(t, d.Latest())
}
