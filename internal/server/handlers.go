package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/logistics-bot/internal/detection"
	"github.com/ironsheep/logistics-bot/internal/imaging"
	"github.com/ironsheep/logistics-bot/internal/materials"
	"github.com/ironsheep/logistics-bot/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "classify_image").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	case "classify_image":
		return s.handleClassifyImage(args)
	case "segment_image":
		return s.handleSegmentImage(args)
	case "annotate_image":
		return s.handleAnnotateImage(args)
	case "recent_records":
		return s.handleRecentRecords(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type frameArgs struct {
	Path   string          `json:"path"`
	Output string          `json:"output"`
	Region *imaging.Region `json:"region"`
}

// load decodes the frame and returns a pipeline using the requested region.
func (s *Server) load(args json.RawMessage) (frameArgs, image.Image, *pipeline.Pipeline, error) {
	var a frameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return a, nil, nil, err
	}
	if a.Path == "" {
		return a, nil, nil, errors.New("path is required")
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return a, nil, nil, err
	}
	p := s.pipeline
	if a.Region != nil {
		override := *s.pipeline
		override.Region = *a.Region
		p = &override
	}
	return a, img, p, nil
}

// SymbolResult is one classified symbol.
type SymbolResult struct {
	Shape       detection.Shape `json:"shape"`
	Vertices    int             `json:"vertices"`
	Area        float64         `json:"area"`
	Perimeter   float64         `json:"perimeter"`
	Circularity float64         `json:"circularity"`
	AspectRatio float64         `json:"aspect_ratio"`
	Box         image.Rectangle `json:"box"`
}

// ClassifyResult is the classify_image result.
type ClassifyResult struct {
	Region  imaging.Region   `json:"region"`
	Counts  materials.Counts `json:"counts"`
	Total   int              `json:"total"`
	Symbols []SymbolResult   `json:"symbols"`
}

func (s *Server) handleClassifyImage(args json.RawMessage) (interface{}, error) {
	_, img, p, err := s.load(args)
	if err != nil {
		return nil, err
	}
	res, err := p.Run(img)
	if err != nil {
		return nil, err
	}
	return classifyResult(p.Region, res), nil
}

func classifyResult(region imaging.Region, res pipeline.Result) ClassifyResult {
	symbols := make([]SymbolResult, len(res.Detections))
	for i, d := range res.Detections {
		symbols[i] = SymbolResult{
			Shape:       d.Shape,
			Vertices:    len(d.Approx),
			Area:        d.Area,
			Perimeter:   d.Perimeter,
			Circularity: d.Circularity,
			AspectRatio: d.AspectRatio,
			Box:         d.Box,
		}
	}
	return ClassifyResult{
		Region:  region,
		Counts:  res.Counts,
		Total:   res.Counts.Total(),
		Symbols: symbols,
	}
}

// SegmentResult is the segment_image result.
type SegmentResult struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	OnPixels int     `json:"on_pixels"`
	Coverage float64 `json:"coverage"`
	Output   string  `json:"output,omitempty"`
}

func (s *Server) handleSegmentImage(args json.RawMessage) (interface{}, error) {
	a, img, p, err := s.load(args)
	if err != nil {
		return nil, err
	}
	roi, err := imaging.ExtractRegion(img, p.Region)
	if err != nil {
		return nil, err
	}
	mask := p.Segmenter.Segment(roi)
	b := mask.Bounds()
	on := imaging.CountOn(mask)

	if a.Output != "" {
		if err := imaging.SaveImage(mask, a.Output); err != nil {
			return nil, err
		}
	}
	return SegmentResult{
		Width:    b.Dx(),
		Height:   b.Dy(),
		OnPixels: on,
		Coverage: float64(on) / float64(b.Dx()*b.Dy()),
		Output:   a.Output,
	}, nil
}

// AnnotateResult is the annotate_image result.
type AnnotateResult struct {
	Output string           `json:"output"`
	Counts materials.Counts `json:"counts"`
}

func (s *Server) handleAnnotateImage(args json.RawMessage) (interface{}, error) {
	a, img, p, err := s.load(args)
	if err != nil {
		return nil, err
	}
	if a.Output == "" {
		return nil, errors.New("output is required")
	}
	res, err := p.Run(img)
	if err != nil {
		return nil, err
	}

	marks := make([]imaging.Mark, len(res.Detections))
	for i, d := range res.Detections {
		marks[i] = imaging.Mark{Outline: d.Approx, Label: d.Shape.String()}
	}
	if err := imaging.SaveImage(imaging.Annotate(img, p.Region, marks, res.Counts.String()), a.Output); err != nil {
		return nil, err
	}
	return AnnotateResult{Output: a.Output, Counts: res.Counts}, nil
}

type recentArgs struct {
	Limit int `json:"limit"`
}

func (s *Server) handleRecentRecords(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.records == nil {
		return nil, errors.New("no journal configured")
	}
	var a recentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Limit <= 0 {
		a.Limit = 20
	}
	return s.records.Recent(ctx, a.Limit)
}
