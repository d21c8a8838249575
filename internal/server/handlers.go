package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
	"github.com/ironsheep/bioimage-lab-mcp/internal/logger"
	"github.com/ironsheep/bioimage-lab-mcp/internal/samples"
	"github.com/ironsheep/bioimage-lab-mcp/internal/threshold"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_threshold").
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
//
// Validation errors return code -32602, every other failure -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, apperr.CodeInvalidParams, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	fields := logrus.Fields{
		"tool":     params.Name,
		"duration": time.Since(start).String(),
	}
	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("tool failed")
		return s.errorResponse(req.ID, apperr.RPCCode(err), "Tool execution failed", err.Error())
	}
	logger.WithFields(fields).Debug("tool completed")

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
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads the image from a sample or the path cache
//  4. Runs the operation and renders any image output
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Loading and inspection
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_info":
		return s.handleImageInfo(args)
	case "image_samples":
		return s.handleImageSamples(args)
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_sample_color":
		return s.handleSampleColor(args)
	case "image_intensity_profile":
		return s.handleIntensityProfile(args)
	case "image_measure_distance":
		return s.handleMeasureDistance(args)

	// Display and colour
	case "image_colormap":
		return s.handleColormap(args)
	case "image_split_channels":
		return s.handleSplitChannels(args)
	case "image_color_deconvolve":
		return s.handleColorDeconvolve(args)
	case "image_to_gray":
		return s.handleToGray(args)
	case "image_scale_channels":
		return s.handleScaleChannels(args)
	case "image_blend":
		return s.handleBlend(args)

	// Geometry
	case "image_transform":
		return s.handleTransform(args)
	case "image_swirl":
		return s.handleSwirl(args)

	// Exposure
	case "image_exposure_check":
		return s.handleExposureCheck(args)
	case "image_equalize":
		return s.handleEqualize(args)
	case "image_rescale_intensity":
		return s.handleRescaleIntensity(args)
	case "image_adjust":
		return s.handleAdjust(args)
	case "image_histogram":
		return s.handleHistogram(args)
	case "image_channel_histograms":
		return s.handleChannelHistograms(args)

	// Thresholding and morphology
	case "image_threshold":
		return s.handleThreshold(args)
	case "image_threshold_compare":
		return s.handleThresholdCompare(args)
	case "image_threshold_local":
		return s.handleThresholdLocal(args)
	case "image_morphology":
		return s.handleMorphology(args)

	// Filtering
	case "image_filter":
		return s.handleFilter(args)
	case "image_add_noise":
		return s.handleAddNoise(args)

	// Measurement
	case "image_label":
		return s.handleLabel(args)
	case "image_region_props":
		return s.handleRegionProps(args)
	case "image_property_map":
		return s.handlePropertyMap(args)

	// Stacks
	case "stack_info":
		return s.handleStackInfo(args)
	case "stack_projection":
		return s.handleStackProjection(ctx, args)
	case "stack_slice":
		return s.handleStackSlice(args)

	// Pipelines
	case "image_segment_nuclei":
		return s.handleSegmentNuclei(args)
	case "image_ocr_binarized":
		return s.handleOCRBinarized(args)

	default:
		return nil, apperr.Validation("unknown tool: %s", name)
	}
}

// source names the input image: a file path or a built-in sample.
type source struct {
	Path   string `json:"path"`
	Sample string `json:"sample"`
}

// output is the optional file the rendered PNG is also written to.
type output struct {
	OutputPath string `json:"output_path"`
}

// decodeArgs unmarshals tool arguments; missing arguments leave v untouched.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return apperr.Validation("invalid arguments: %v", err)
	}
	return nil
}

// loadImage resolves a source to a decoded image.
func (s *Server) loadImage(src source) (image.Image, error) {
	switch {
	case src.Path != "" && src.Sample != "":
		return nil, apperr.Validation("give either path or sample, not both")
	case src.Sample != "":
		return samples.Load(src.Sample)
	case src.Path != "":
		img, err := s.cache.Load(src.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, apperr.NotFound("image file %s does not exist", src.Path)
			}
			return nil, apperr.Processing("failed to load "+src.Path, err)
		}
		return img, nil
	}
	return nil, apperr.Validation("path or sample is required")
}

// loadPlane resolves a source to its normalised luminance plane.
func (s *Server) loadPlane(src source) (*imaging.Plane, error) {
	img, err := s.loadImage(src)
	if err != nil {
		return nil, err
	}
	return imaging.FromImage(img), nil
}

// loadMask resolves a source to a binary mask. Images holding only 0 and 1
// are taken as masks already; anything else is thresholded with method.
func (s *Server) loadMask(src source, method string) (*imaging.Mask, *imaging.Plane, error) {
	p, err := s.loadPlane(src)
	if err != nil {
		return nil, nil, err
	}
	if isBinary(p) {
		return p.Threshold(0.5), p, nil
	}
	if method == "" {
		method = threshold.MethodOtsu
	}
	t, err := threshold.Global(p, method)
	if err != nil {
		return nil, nil, err
	}
	return p.Threshold(t), p, nil
}

func isBinary(p *imaging.Plane) bool {
	for _, v := range p.Pix {
		if v != 0 && v != 1 {
			return false
		}
	}
	return true
}

// resolve applies the configured output directory.
func (s *Server) resolve(outputPath string) string {
	return s.cfg.ResolveOutput(outputPath)
}

func (s *Server) encodeImage(img image.Image, outputPath string) (*imaging.ImageResult, error) {
	res, err := imaging.EncodeImage(img, s.resolve(outputPath))
	if err != nil {
		return nil, apperr.Processing("failed to render image", err)
	}
	return res, nil
}

func (s *Server) encodePlane(p *imaging.Plane, scaling, outputPath string) (*imaging.ImageResult, error) {
	sc, err := imaging.ParseScaling(scaling)
	if err != nil {
		return nil, err
	}
	res, err := imaging.EncodePlane(p, sc, s.resolve(outputPath))
	if err != nil {
		return nil, apperr.Processing("failed to render plane", err)
	}
	return res, nil
}

func (s *Server) encodeMask(m *imaging.Mask, outputPath string) (*imaging.ImageResult, error) {
	res, err := imaging.EncodeMask(m, s.resolve(outputPath))
	if err != nil {
		return nil, apperr.Processing("failed to render mask", err)
	}
	return res, nil
}

// withSuffix derives a sibling output path, e.g. out.png -> out_red.png.
// An empty path stays empty.
func withSuffix(p, suffix string) string {
	if p == "" {
		return ""
	}
	ext := filepath.Ext(p)
	if ext == "" {
		ext = ".png"
	}
	return strings.TrimSuffix(p, filepath.Ext(p)) + "_" + suffix + ext
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// handleImageLoad describes a file on disk or a built-in sample.
func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a source
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Sample != "" && a.Path == "" {
		if _, err := samples.Load(a.Sample); err != nil {
			return nil, err
		}
		for _, info := range samples.List() {
			if info.Name == a.Sample {
				return info, nil
			}
		}
	}
	if _, err := s.loadImage(a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a source
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &imaging.DimensionsResult{Width: b.Dx(), Height: b.Dy()}, nil
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a source
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a)
	if err != nil {
		return nil, err
	}
	return imaging.Describe(img), nil
}

func (s *Server) handleImageSamples(args json.RawMessage) (interface{}, error) {
	return map[string]interface{}{
		"samples": samples.List(),
	}, nil
}

type cropArgs struct {
	source
	output
	imaging.Region
	Scale float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a cropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, a.Region, orDefault(a.Scale, 1), s.resolve(a.OutputPath))
}

type pointArgs struct {
	source
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleSampleColor(args json.RawMessage) (interface{}, error) {
	var a pointArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

type profileArgs struct {
	source
	Axis  string `json:"axis"`
	Index int    `json:"index"`
}

func (s *Server) handleIntensityProfile(args json.RawMessage) (interface{}, error) {
	var a profileArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}
	return imaging.IntensityProfile(p, a.Axis, a.Index)
}

type distanceArgs struct {
	source
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (s *Server) handleMeasureDistance(args json.RawMessage) (interface{}, error) {
	var a distanceArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	return imaging.MeasureDistance(img, a.X1, a.Y1, a.X2, a.Y2)
}
