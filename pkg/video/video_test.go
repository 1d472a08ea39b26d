package video

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-realitywrite/internal/log"
)

func nal(typ byte, n int) []byte {
	out := []byte{0, 0, 0, 1, 0x60 | typ}
	return append(out, bytes.Repeat([]byte{0xaa}, n)...)
}

func TestNalTypes(t *testing.T) {
	buf := append(nal(nalSPS, 4), nal(nalPPS, 2)...)
	buf = append(buf, 0, 0, 1, 0x65, 0x88) // 3-byte start code, IDR
	assert.Equal(t, []uint8{nalSPS, nalPPS, nalIDR}, nalTypes(buf))
	assert.Empty(t, nalTypes([]byte{1, 2, 3}))
}

func TestAssembler_WaitsForKeyframe(t *testing.T) {
	var a assembler

	a.push(nal(1, 10)) // P slice before anything
	assert.Nil(t, a.chunk())

	a.push(nal(nalIDR, 10)) // IDR without parameter sets
	assert.Nil(t, a.chunk())

	a.push(nal(nalSPS, 4))
	a.push(nal(nalPPS, 2))
	a.push(nal(nalIDR, 10))
	a.push(nal(1, 8))

	chunk := a.chunk()
	require.NotNil(t, chunk)
	assert.Equal(t, []uint8{nalSPS, nalPPS, nalIDR, 1}, nalTypes(chunk))
}

func TestAssembler_RestartsOnKeyframe(t *testing.T) {
	var a assembler
	a.push(nal(nalSPS, 4))
	a.push(nal(nalPPS, 2))
	a.push(nal(nalIDR, 10))
	a.push(nal(1, 8))
	a.push(nal(1, 8))
	a.push(nal(nalIDR, 10))

	assert.Equal(t, []uint8{nalSPS, nalPPS, nalIDR}, nalTypes(a.chunk()))
}

func TestAssembler_ChunkIsCopy(t *testing.T) {
	var a assembler
	a.push(nal(nalSPS, 4))
	a.push(nal(nalPPS, 2))
	a.push(nal(nalIDR, 10))

	chunk := a.chunk()
	chunk[0] = 0xff
	assert.Equal(t, byte(0), a.chunk()[0])
}

func encodeJPEG(t *testing.T, w, h int, fill func(x, y int) color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func TestBlankFrame(t *testing.T) {
	black := encodeJPEG(t, 200, 200, func(int, int) color.Color { return color.Black })
	grey := encodeJPEG(t, 200, 200, func(int, int) color.Color { return color.RGBA{128, 128, 128, 255} })
	scene := encodeJPEG(t, 200, 200, func(x, y int) color.Color {
		return color.RGBA{uint8(x), uint8(y), 200, 255}
	})

	assert.True(t, blankFrame(nil))
	assert.True(t, blankFrame(black))
	assert.True(t, blankFrame(grey))
	assert.False(t, blankFrame(scene))
}

func TestLastJPEG(t *testing.T) {
	stream := []byte{0xff, 0xd8, 0xff, 1, 2, 0xff, 0xd9, 0xff, 0xd8, 0xff, 3, 0xff, 0xd9}
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 3, 0xff, 0xd9}, lastJPEG(stream))
	assert.Nil(t, lastJPEG([]byte("no image")))
}

func TestDecode_ShortChunk(t *testing.T) {
	_, err := NewDecoder("").Decode(context.Background(), []byte{0, 0, 0, 1})
	assert.ErrorIs(t, err, ErrNoPicture)
}

func TestSelectProducer(t *testing.T) {
	list := `{"type":"list","producers":[
		{"id":"a1","meta":{"name":"other"}},
		{"id":"b2","meta":{"name":"camera"}}]}`

	id, err := selectProducer([]byte(list), "camera")
	require.NoError(t, err)
	assert.Equal(t, "b2", id)

	_, err = selectProducer([]byte(list), "missing")
	assert.ErrorContains(t, err, "2 producers")
}

func TestParseWelcome(t *testing.T) {
	id, err := parseWelcome([]byte(`{"type":"welcome","peerId":"p-123"}`))
	require.NoError(t, err)
	assert.Equal(t, "p-123", id)

	_, err = parseWelcome([]byte(`{"type":"list"}`))
	assert.Error(t, err)
}

func TestPeerMessage(t *testing.T) {
	var msg peerMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"peer","sessionId":"s",
		"sdp":{"type":"offer","sdp":"v=0"},
		"ice":{"candidate":"candidate:1","sdpMid":"0","sdpMLineIndex":0}}`), &msg))

	offer, ok := msg.offer()
	require.True(t, ok)
	assert.Equal(t, webrtc.SDPTypeOffer, offer.Type)
	assert.Equal(t, "v=0", offer.SDP)

	cand, ok := msg.candidate()
	require.True(t, ok)
	assert.Equal(t, "candidate:1", cand.Candidate)
	require.NotNil(t, cand.SDPMid)
	assert.Equal(t, "0", *cand.SDPMid)

	out, err := json.Marshal(answerMessage("s", webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"peer","sessionId":"s","sdp":{"type":"answer","sdp":"v=0"}}`, string(out))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.SignallingURL = "http://host:8443"
	assert.Error(t, cfg.Validate())

	cfg.SignallingURL = "ws://host:8443"
	assert.NoError(t, cfg.Validate())

	cfg.DecodeInterval = 0
	assert.Error(t, cfg.Validate())
}

// fakeSignalling answers welcome and list like webrtcsink's server.
func fakeSignalling(t *testing.T, producers string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(map[string]string{"type": "welcome", "peerId": "client-1"})
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg["type"] == "list" {
				conn.WriteMessage(websocket.TextMessage, []byte(producers))
			}
		}
	}))
}

func TestHandshake(t *testing.T) {
	srv := fakeSignalling(t, `{"type":"list","producers":[{"id":"prod-9","meta":{"name":"camera"}}]}`)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.SignallingURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.ConnectTimeout = 2 * time.Second
	cfg.Logger = log.Discard()

	c, err := NewClient(cfg)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	require.NoError(t, c.handshake(ctx))

	assert.Equal(t, "client-1", c.peerID)
	assert.Equal(t, "prod-9", c.producerID)

	_, ok := c.CurrentFrame()
	assert.False(t, ok)
}

func TestHandshake_ProducerMissing(t *testing.T) {
	srv := fakeSignalling(t, `{"type":"list","producers":[]}`)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.SignallingURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.Logger = log.Discard()

	c, err := NewClient(cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.ErrorContains(t, c.handshake(context.Background()), "not found")
}
