package video

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v3"
)

// Signalling message types used by the GStreamer webrtcsink protocol.
const (
	msgWelcome        = "welcome"
	msgList           = "list"
	msgStartSession   = "startSession"
	msgSessionStarted = "sessionStarted"
	msgPeer           = "peer"
	msgEndSession     = "endSession"
)

type envelope struct {
	Type      string `json:"type"`
	PeerID    string `json:"peerId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type producer struct {
	ID   string            `json:"id"`
	Meta map[string]string `json:"meta"`
}

type listResponse struct {
	Type      string     `json:"type"`
	Producers []producer `json:"producers"`
}

type sdpPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type icePayload struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

type peerMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	SDP       *sdpPayload `json:"sdp,omitempty"`
	ICE       *icePayload `json:"ice,omitempty"`
}

func parseWelcome(data []byte) (string, error) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", err
	}
	if msg.Type != msgWelcome {
		return "", fmt.Errorf("expected %s, got %q", msgWelcome, msg.Type)
	}
	return msg.PeerID, nil
}

// selectProducer returns the ID of the producer advertising name.
func selectProducer(data []byte, name string) (string, error) {
	var resp listResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}
	for _, p := range resp.Producers {
		if p.Meta["name"] == name {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("producer %q not found among %d producers", name, len(resp.Producers))
}

func (m peerMessage) offer() (webrtc.SessionDescription, bool) {
	if m.SDP == nil || m.SDP.Type != "offer" {
		return webrtc.SessionDescription{}, false
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: m.SDP.SDP}, true
}

func (m peerMessage) candidate() (webrtc.ICECandidateInit, bool) {
	if m.ICE == nil || m.ICE.Candidate == "" {
		return webrtc.ICECandidateInit{}, false
	}
	return webrtc.ICECandidateInit{
		Candidate:     m.ICE.Candidate,
		SDPMid:        m.ICE.SDPMid,
		SDPMLineIndex: m.ICE.SDPMLineIndex,
	}, true
}

func answerMessage(sessionID string, sdp webrtc.SessionDescription) peerMessage {
	return peerMessage{
		Type:      msgPeer,
		SessionID: sessionID,
		SDP:       &sdpPayload{Type: sdp.Type.String(), SDP: sdp.SDP},
	}
}

func candidateMessage(sessionID string, c webrtc.ICECandidateInit) peerMessage {
	return peerMessage{
		Type:      msgPeer,
		SessionID: sessionID,
		ICE: &icePayload{
			Candidate:     c.Candidate,
			SDPMid:        c.SDPMid,
			SDPMLineIndex: c.SDPMLineIndex,
		},
	}
}
