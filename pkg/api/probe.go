package api

import (
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evanxg852000/p2p-handshake/pkg/handshake"
	"github.com/evanxg852000/p2p-handshake/pkg/network"
	"github.com/evanxg852000/p2p-handshake/pkg/wire"
)

// ProbeRequest asks the server to perform one handshake against a node.
type ProbeRequest struct {
	// Target is a "host:port" pair or a multiaddr.
	Target string `json:"target" binding:"required"`

	// AgentName and Version override the server's announced identity.
	AgentName string `json:"agentName,omitempty"`
	Version   string `json:"version,omitempty"`

	// TimeoutSeconds bounds the exchange; capped at the server maximum.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`

	// Strict fails the probe on a major version mismatch.
	Strict bool `json:"strict,omitempty"`
}

// ProbeResponse reports the outcome of one handshake probe.
type ProbeResponse struct {
	Success         bool          `json:"success"`
	Target          string        `json:"target"`
	PeerAgent       string        `json:"peerAgent,omitempty"`
	PeerVersion     string        `json:"peerVersion,omitempty"`
	PeerAddr        string        `json:"peerAddr,omitempty"`
	PeerFeatures    []FeatureInfo `json:"peerFeatures,omitempty"`
	PeerFingerprint string        `json:"peerFingerprint,omitempty"`
	VersionNote     string        `json:"versionNote,omitempty"`
	ElapsedMs       int64         `json:"elapsedMs"`
	ErrorKind       string        `json:"errorKind,omitempty"`
	ErrorDetail     string        `json:"errorDetail,omitempty"`
	CheckedAt       time.Time     `json:"checkedAt"`
}

// FeatureInfo describes one feature entry from the peer handshake.
type FeatureInfo struct {
	Tag  uint8  `json:"tag"`
	Data string `json:"data"` // hex encoded
}

// ErrorResponse reports a request-level failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleProbe handles POST /api/v1/handshake
func (s *Server) handleProbe(c *gin.Context) {
	var req ProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	identity := handshake.Identity{
		AgentName: s.config.AgentName,
		Version:   s.config.Version,
	}
	if req.AgentName != "" {
		identity.AgentName = req.AgentName
	}
	if req.Version != "" {
		version, err := wire.ParseVersion(req.Version)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid version",
				Message: err.Error(),
			})
			return
		}
		identity.Version = version
	}

	timeout := s.config.DefaultTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	if timeout > s.config.MaxTimeout {
		timeout = s.config.MaxTimeout
	}

	conn, err := network.Dial(req.Target, timeout)
	if err != nil {
		s.metrics.ObserveDialFailure()
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "Connection failed",
			Message: err.Error(),
		})
		return
	}
	defer conn.Close()

	outcome := handshake.Perform(conn, identity, handshake.Options{
		Timeout:       timeout,
		StrictVersion: req.Strict,
	})
	s.metrics.Observe(outcome)

	c.JSON(http.StatusOK, probeResponse(req.Target, outcome))
}

func probeResponse(target string, o *handshake.Outcome) ProbeResponse {
	resp := ProbeResponse{
		Success:   o.OK,
		Target:    target,
		ElapsedMs: o.Elapsed.Milliseconds(),
		CheckedAt: time.Now(),
	}
	if !o.OK {
		resp.ErrorKind = o.Kind.String()
		resp.ErrorDetail = o.Detail
		if o.Err != nil {
			resp.ErrorDetail += ": " + o.Err.Error()
		}
		return resp
	}

	resp.PeerAgent = o.Peer.AgentName
	resp.PeerVersion = o.Peer.Version.String()
	resp.PeerFingerprint = o.PeerFingerprint
	resp.VersionNote = o.VersionNote
	if o.Peer.DeclaredAddr != nil {
		resp.PeerAddr = o.Peer.DeclaredAddr.String()
	}
	for _, f := range o.Peer.Features {
		resp.PeerFeatures = append(resp.PeerFeatures, FeatureInfo{
			Tag:  f.Tag,
			Data: hex.EncodeToString(f.Data),
		})
	}
	return resp
}
