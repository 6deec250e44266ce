// Package hmmmcp exposes the decode use case as a Model Context
// Protocol tool, mirroring the HTTP adaptor in internal/hmmapi but
// reachable from MCP clients instead of plain JSON over HTTP.
package hmmmcp

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/seanlee928/mapmatchingkit/internal/hmmapi"
)

// Server wraps an mcp.Server exposing the decodeSequence and
// streamDecodeSequence tools.
type Server struct {
	server  *mcp.Server
	logger  *zap.Logger
	handler *mcp.StreamableHTTPHandler
}

// DecodeSequenceParams is the decodeSequence tool's input schema.
type DecodeSequenceParams struct {
	Steps           []hmmapi.StepRequest `json:"steps" jsonschema:"the observation sequence to decode, one entry per time step"`
	EnableSmoothing bool                 `json:"enable_smoothing,omitempty" jsonschema:"attach forward-backward smoothing probabilities to the result"`
}

// StreamDecodeSequenceParams is the streamDecodeSequence tool's input
// schema.
type StreamDecodeSequenceParams struct {
	Steps      []hmmapi.StepRequest `json:"steps" jsonschema:"the observation sequence to decode, one entry per time step"`
	KappaSteps int                  `json:"kappa_steps,omitempty" jsonschema:"retained history length, negative for unbounded"`
	TauSeconds int                  `json:"tau_seconds,omitempty" jsonschema:"retained history span in seconds, zero or negative for unbounded"`
}

// New builds an hmmmcp.Server logging through logger.
func New(logger *zap.Logger) *Server {
	s := &Server{logger: logger}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "hmm-decoder",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "decodeSequence",
		Description: "Decode the most likely latent state sequence for an observation sequence using Viterbi inference.",
	}, s.handleDecodeSequence)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "streamDecodeSequence",
		Description: "Decode an observation sequence one sample at a time using the online filter and bounded k-State memory.",
	}, s.handleStreamDecodeSequence)

	s.handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil)
	s.server = mcpServer
	return s
}

// SetupHTTPRoutes mounts the MCP streamable-HTTP handler at /mcp.
func (s *Server) SetupHTTPRoutes(mux *http.ServeMux) {
	mux.Handle("/mcp", s.handler)
}

func (s *Server) handleDecodeSequence(ctx context.Context, req *mcp.CallToolRequest, args DecodeSequenceParams) (*mcp.CallToolResult, any, error) {
	requestID := uuid.NewString()
	s.logger.Info("handling decodeSequence request",
		zap.String("request_id", requestID),
		zap.Int("steps", len(args.Steps)),
	)

	resp, err := hmmapi.Decode(hmmapi.DecodeRequest{Steps: args.Steps, EnableSmoothing: args.EnableSmoothing})
	if err != nil {
		s.logger.Error("decodeSequence failed", zap.String("request_id", requestID), zap.Error(err))
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "decode failed: " + err.Error()}},
			IsError: true,
		}, nil, nil
	}

	s.logger.Info("decodeSequence succeeded",
		zap.String("request_id", requestID),
		zap.Int("states", len(resp.States)),
		zap.Bool("broken", resp.Broken),
	)
	return &mcp.CallToolResult{}, resp, nil
}

func (s *Server) handleStreamDecodeSequence(ctx context.Context, req *mcp.CallToolRequest, args StreamDecodeSequenceParams) (*mcp.CallToolResult, any, error) {
	requestID := uuid.NewString()
	s.logger.Info("handling streamDecodeSequence request",
		zap.String("request_id", requestID),
		zap.Int("steps", len(args.Steps)),
	)

	resp, err := hmmapi.StreamDecode(hmmapi.StreamDecodeRequest{
		Steps:      args.Steps,
		KappaSteps: args.KappaSteps,
		TauSeconds: args.TauSeconds,
	})
	if err != nil {
		s.logger.Error("streamDecodeSequence failed", zap.String("request_id", requestID), zap.Error(err))
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "stream decode failed: " + err.Error()}},
			IsError: true,
		}, nil, nil
	}

	s.logger.Info("streamDecodeSequence succeeded",
		zap.String("request_id", requestID),
		zap.Int("states", len(resp.States)),
		zap.String("estimate", resp.Estimate),
	)
	return &mcp.CallToolResult{}, resp, nil
}
