package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/config"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// newTestServer returns a server whose relative outputs land in a temp dir.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.Processing.Workers = 2
	return New(cfg, "test")
}

// writeTestImage encodes img as PNG in a temp dir and returns its path.
func writeTestImage(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// twoSquares is a 40x40 gray image with two 10x10 squares at level fg on a
// background at level bg.
func twoSquares(bg, fg uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range img.Pix {
		img.Pix[i] = bg
	}
	for _, o := range []image.Point{{5, 5}, {25, 25}} {
		for y := o.Y; y < o.Y+10; y++ {
			for x := o.X; x < o.X+10; x++ {
				img.SetGray(x, y, color.Gray{Y: fg})
			}
		}
	}
	return img
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  params,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// runTool calls a tool that must succeed and decodes its JSON text into v.
func runTool(t *testing.T, s *Server, name string, args map[string]interface{}, v interface{}) {
	t.Helper()
	resp := callTool(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s failed: %s (%v)", name, resp.Error.Message, resp.Error.Data)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("%s: result should be a map", name)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("%s: unexpected content %v", name, result["content"])
	}
	text, _ := content[0]["text"].(string)
	if v == nil {
		return
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("%s: bad result JSON: %v\n%s", name, err, text)
	}
}

// toolErrorCode calls a tool that must fail and returns the JSON-RPC code.
func toolErrorCode(t *testing.T, s *Server, name string, args map[string]interface{}) int {
	t.Helper()
	resp := callTool(t, s, name, args)
	if resp.Error == nil {
		t.Fatalf("%s: expected an error, got %v", name, resp.Result)
	}
	return resp.Error.Code
}

type imageOnly struct {
	Image imaging.ImageResult `json:"image"`
}

func TestImageLoad(t *testing.T) {
	s := newTestServer(t)
	path := writeTestImage(t, "load.png", twoSquares(0, 255))

	var info imaging.ImageInfo
	runTool(t, s, "image_load", map[string]interface{}{"path": path}, &info)
	if info.Width != 40 || info.Height != 40 || info.Format != "png" {
		t.Errorf("unexpected info %+v", info)
	}

	var sample struct {
		Name  string `json:"name"`
		DType string `json:"dtype"`
	}
	runTool(t, s, "image_load", map[string]interface{}{"sample": "nuclei"}, &sample)
	if sample.Name != "nuclei" || sample.DType != "uint16" {
		t.Errorf("unexpected sample info %+v", sample)
	}
}

func TestImageDimensionsAndInfo(t *testing.T) {
	s := newTestServer(t)

	var dims imaging.DimensionsResult
	runTool(t, s, "image_dimensions", map[string]interface{}{"sample": "page"}, &dims)
	if dims.Width != 240 || dims.Height != 120 {
		t.Errorf("page dimensions: got %dx%d", dims.Width, dims.Height)
	}

	var info imaging.DTypeInfo
	runTool(t, s, "image_info", map[string]interface{}{"sample": "ihc"}, &info)
	if info.DType != "uint8" || info.Channels != 3 {
		t.Errorf("ihc info: %+v", info)
	}
}

func TestImageSamples(t *testing.T) {
	s := newTestServer(t)
	var out struct {
		Samples []struct {
			Name string `json:"name"`
		} `json:"samples"`
	}
	runTool(t, s, "image_samples", nil, &out)
	if len(out.Samples) != 8 {
		t.Errorf("got %d samples, want 8", len(out.Samples))
	}
}

func TestSourceErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		args map[string]interface{}
		want int
	}{
		{"missing source", map[string]interface{}{}, apperr.CodeInvalidParams},
		{"both sources", map[string]interface{}{"path": "/tmp/x.png", "sample": "cell"}, apperr.CodeInvalidParams},
		{"missing file", map[string]interface{}{"path": "/nonexistent/nope.png"}, apperr.CodeToolFailure},
		{"unknown sample", map[string]interface{}{"sample": "astronaut"}, apperr.CodeToolFailure},
		{"wrong argument type", map[string]interface{}{"sample": 3}, apperr.CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toolErrorCode(t, s, "image_dimensions", tt.args); got != tt.want {
				t.Errorf("code: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	if code := toolErrorCode(t, s, "image_teleport", nil); code != apperr.CodeInvalidParams {
		t.Errorf("code: got %d", code)
	}
}

func TestImageCrop_WritesOutput(t *testing.T) {
	s := newTestServer(t)
	var res imaging.ImageResult
	runTool(t, s, "image_crop", map[string]interface{}{
		"sample": "cell", "x1": 10, "y1": 20, "x2": 50, "y2": 40, "scale": 2,
		"output_path": "crops/cell.png",
	}, &res)

	if res.Width != 80 || res.Height != 40 {
		t.Errorf("crop size: got %dx%d, want 80x40", res.Width, res.Height)
	}
	want := filepath.Join(s.cfg.Output.Dir, "crops", "cell.png")
	if res.OutputPath != want {
		t.Errorf("output path: got %s, want %s", res.OutputPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("output file not written: %v", err)
	}

	code := toolErrorCode(t, s, "image_crop", map[string]interface{}{"sample": "cell", "x1": 50, "y1": 0, "x2": 10, "y2": 10})
	if code != apperr.CodeInvalidParams {
		t.Errorf("inverted region code: got %d", code)
	}
}

func TestSampleColorProfileDistance(t *testing.T) {
	s := newTestServer(t)
	path := writeTestImage(t, "sq.png", twoSquares(0, 255))

	var px imaging.PixelResult
	runTool(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 6, "y": 6}, &px)
	if px.Float != 1 || px.Hex != "#FFFFFF" {
		t.Errorf("pixel: %+v", px)
	}

	var prof imaging.ProfileResult
	runTool(t, s, "image_intensity_profile", map[string]interface{}{"path": path, "axis": "row", "index": 7}, &prof)
	if len(prof.Values) != 40 || prof.Max != 1 || prof.Min != 0 {
		t.Errorf("profile: len %d min %g max %g", len(prof.Values), prof.Min, prof.Max)
	}

	var dist imaging.DistanceResult
	runTool(t, s, "image_measure_distance", map[string]interface{}{"path": path, "x1": 0, "y1": 0, "x2": 3, "y2": 4}, &dist)
	if dist.DistancePixels != 5 {
		t.Errorf("distance: got %g, want 5", dist.DistancePixels)
	}
}

func TestColormap(t *testing.T) {
	s := newTestServer(t)
	var res ColormapResult
	runTool(t, s, "image_colormap", map[string]interface{}{"sample": "cell", "colormap": "viridis", "colorbar": true}, &res)
	if res.Image.Width <= 160 || res.Image.Height != 160 {
		t.Errorf("colorbar not appended: %dx%d", res.Image.Width, res.Image.Height)
	}
	if res.VMin >= res.VMax {
		t.Errorf("auto range: %g..%g", res.VMin, res.VMax)
	}

	runTool(t, s, "image_colormap", map[string]interface{}{"sample": "cell", "colormap": "#ff00ff", "vmin": 0.2, "vmax": 0.6}, &res)
	if res.VMin != 0.2 || res.VMax != 0.6 {
		t.Errorf("explicit range: %g..%g", res.VMin, res.VMax)
	}

	var plain, inverted ColormapResult
	runTool(t, s, "image_colormap", map[string]interface{}{"sample": "cell"}, &plain)
	runTool(t, s, "image_colormap", map[string]interface{}{"sample": "cell", "invert": true}, &inverted)
	if !inverted.Inverted {
		t.Error("inverted flag not reported")
	}
	if math.Abs(inverted.VMin-(1-plain.VMax)) > 1e-12 || math.Abs(inverted.VMax-(1-plain.VMin)) > 1e-12 {
		t.Errorf("inverted range %g..%g, plain %g..%g", inverted.VMin, inverted.VMax, plain.VMin, plain.VMax)
	}

	for _, args := range []map[string]interface{}{
		{"sample": "cell", "colormap": "rainbow-unicorn"},
		{"sample": "cell", "vmin": 0.8, "vmax": 0.2},
	} {
		if code := toolErrorCode(t, s, "image_colormap", args); code != apperr.CodeInvalidParams {
			t.Errorf("%v: code %d", args, code)
		}
	}
}

func TestSplitChannels(t *testing.T) {
	s := newTestServer(t)
	var out struct {
		Space    string         `json:"space"`
		Channels []ChannelImage `json:"channels"`
	}
	runTool(t, s, "image_split_channels", map[string]interface{}{"sample": "ihc", "tint": true, "output_path": "ihc.png"}, &out)
	if len(out.Channels) != 3 || out.Channels[0].Channel != "red" {
		t.Fatalf("channels: %+v", out.Channels)
	}
	for _, name := range []string{"red", "green", "blue"} {
		if _, err := os.Stat(filepath.Join(s.cfg.Output.Dir, "ihc_"+name+".png")); err != nil {
			t.Errorf("channel file %s missing: %v", name, err)
		}
	}

	runTool(t, s, "image_split_channels", map[string]interface{}{"sample": "retina", "space": "hsv"}, &out)
	if out.Space != "hsv" || out.Channels[0].Channel != "hue" {
		t.Errorf("hsv split: %+v", out)
	}
	if out.Channels[0].Max > 1 {
		t.Errorf("hue should be scaled to [0, 1], max %g", out.Channels[0].Max)
	}
}

func TestColorOperations(t *testing.T) {
	s := newTestServer(t)

	var hed struct {
		Stain string  `json:"stain"`
		Max   float64 `json:"concentration_max"`
	}
	runTool(t, s, "image_color_deconvolve", map[string]interface{}{"sample": "ihc", "stain": "dab"}, &hed)
	if hed.Stain != "dab" || hed.Max <= 0 {
		t.Errorf("dab deconvolution: %+v", hed)
	}

	var gray struct {
		Mean  float64             `json:"mean"`
		Image imaging.ImageResult `json:"image"`
	}
	runTool(t, s, "image_to_gray", map[string]interface{}{"sample": "retina"}, &gray)
	if gray.Mean <= 0 || gray.Image.Width != 192 {
		t.Errorf("to gray: %+v", gray)
	}

	var img imageOnly
	runTool(t, s, "image_scale_channels", map[string]interface{}{"sample": "ihc", "gains": []float64{1, 0, 0}}, &img)
	if img.Image.Width != 160 {
		t.Errorf("scaled width %d", img.Image.Width)
	}
	if code := toolErrorCode(t, s, "image_scale_channels", map[string]interface{}{"sample": "ihc", "gains": []float64{1, 0}}); code != apperr.CodeInvalidParams {
		t.Errorf("short gains code %d", code)
	}

	runTool(t, s, "image_blend", map[string]interface{}{"sample": "ihc", "other_sample": "hubble", "weight": 0.3}, &img)
	if img.Image.Width != 160 {
		t.Errorf("blend width %d", img.Image.Width)
	}
	if code := toolErrorCode(t, s, "image_blend", map[string]interface{}{"sample": "ihc", "other_sample": "retina"}); code != apperr.CodeInvalidParams {
		t.Errorf("shape mismatch code %d", code)
	}
}

func TestTransform(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		args   map[string]interface{}
		wantW  int
		wantH  int
		minW   bool
		errful bool
	}{
		{"translate", map[string]interface{}{"op": "translate", "dx": 5, "dy": 3}, 160, 160, false, false},
		{"move patch", map[string]interface{}{"op": "move_patch", "x": 0, "y": 0, "size": 20, "dx": 10, "dy": 10}, 160, 160, false, false},
		{"rotate", map[string]interface{}{"op": "rotate", "angle": 30}, 160, 160, false, false},
		{"rescale", map[string]interface{}{"op": "rescale", "scale": 0.5}, 80, 80, false, false},
		{"resize keeps aspect", map[string]interface{}{"op": "resize", "width": 40}, 40, 40, false, false},
		{"shear grows canvas", map[string]interface{}{"op": "shear", "angle": 10, "axis": "horizontal"}, 160, 160, true, false},
		{"flip", map[string]interface{}{"op": "flip", "axis": "vertical"}, 160, 160, false, false},
		{"affine", map[string]interface{}{"op": "affine", "matrix": []float64{1, 0, 5, 0, 1, 5}}, 160, 160, false, false},
		{"singular affine", map[string]interface{}{"op": "affine", "matrix": []float64{0, 0, 0, 0, 0, 0}}, 0, 0, false, true},
		{"unknown op", map[string]interface{}{"op": "teleport"}, 0, 0, false, true},
		{"missing op", map[string]interface{}{}, 0, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["sample"] = "ihc"
			if tt.errful {
				if code := toolErrorCode(t, s, "image_transform", tt.args); code != apperr.CodeInvalidParams {
					t.Errorf("code %d", code)
				}
				return
			}
			var res imageOnly
			runTool(t, s, "image_transform", tt.args, &res)
			if tt.minW {
				if res.Image.Width < tt.wantW {
					t.Errorf("width %d, want >= %d", res.Image.Width, tt.wantW)
				}
				return
			}
			if res.Image.Width != tt.wantW || res.Image.Height != tt.wantH {
				t.Errorf("size %dx%d, want %dx%d", res.Image.Width, res.Image.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestSwirl(t *testing.T) {
	s := newTestServer(t)
	var res struct {
		Strength float64             `json:"strength"`
		Radius   float64             `json:"radius"`
		Image    imaging.ImageResult `json:"image"`
	}
	runTool(t, s, "image_swirl", map[string]interface{}{"sample": "faces"}, &res)
	if res.Strength != 5 || res.Radius != 150 || res.Image.Width != 25 {
		t.Errorf("swirl defaults: %+v", res)
	}
	if code := toolErrorCode(t, s, "image_swirl", map[string]interface{}{"sample": "faces", "center_x": 3}); code != apperr.CodeInvalidParams {
		t.Errorf("half centre code %d", code)
	}
	if code := toolErrorCode(t, s, "image_swirl", map[string]interface{}{"sample": "faces", "radius": -1}); code != apperr.CodeInvalidParams {
		t.Errorf("negative radius code %d", code)
	}
}

func TestExposureCheck(t *testing.T) {
	s := newTestServer(t)
	dull := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			dull.SetGray(x, y, color.Gray{Y: uint8(100 + x%5)})
		}
	}
	path := writeTestImage(t, "dull.png", dull)

	var rep struct {
		DType struct {
			DType string `json:"dtype"`
		} `json:"dtype"`
		Stats struct {
			Min float64 `json:"min"`
		} `json:"stats"`
		LowContrast struct {
			Low bool `json:"low_contrast"`
		} `json:"low_contrast"`
	}
	runTool(t, s, "image_exposure_check", map[string]interface{}{"path": path}, &rep)
	if !rep.LowContrast.Low {
		t.Error("a 5-level image should be low contrast")
	}
	if rep.DType.DType != "uint8" {
		t.Errorf("dtype %s", rep.DType.DType)
	}

	runTool(t, s, "image_exposure_check", map[string]interface{}{"path": writeTestImage(t, "sq.png", twoSquares(0, 255))}, &rep)
	if rep.LowContrast.Low {
		t.Error("a black and white image is not low contrast")
	}
}

func TestEqualizeAndRescale(t *testing.T) {
	s := newTestServer(t)

	var eq map[string]interface{}
	runTool(t, s, "image_equalize", map[string]interface{}{"sample": "cell", "bins": 64}, &eq)
	if eq["method"] != "hist" || eq["bins"] != float64(64) {
		t.Errorf("hist equalize: %v", eq["method"])
	}
	runTool(t, s, "image_equalize", map[string]interface{}{"sample": "cell", "method": "stretch"}, &eq)
	if eq["in_low"].(float64) >= eq["in_high"].(float64) {
		t.Errorf("stretch limits: %v %v", eq["in_low"], eq["in_high"])
	}
	if code := toolErrorCode(t, s, "image_equalize", map[string]interface{}{"sample": "cell", "method": "clahe"}); code != apperr.CodeInvalidParams {
		t.Errorf("unknown method code %d", code)
	}

	tests := []struct {
		name string
		args map[string]interface{}
		max  float64
	}{
		{"rescale", map[string]interface{}{"mode": "rescale", "out_low": 0, "out_high": 0.5}, 0.5},
		{"gamma", map[string]interface{}{"mode": "gamma", "gamma": 2}, 1},
		{"log", map[string]interface{}{"mode": "log"}, 1},
		{"sigmoid", map[string]interface{}{"mode": "sigmoid", "cutoff": 0.4}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["sample"] = "cell"
			var res struct {
				Mode string  `json:"mode"`
				Max  float64 `json:"max"`
			}
			runTool(t, s, "image_rescale_intensity", tt.args, &res)
			if res.Mode != tt.name {
				t.Errorf("mode %s", res.Mode)
			}
			if res.Max > tt.max+1e-9 {
				t.Errorf("max %g above %g", res.Max, tt.max)
			}
		})
	}
}

func TestAdjust(t *testing.T) {
	s := newTestServer(t)
	var res imageOnly
	runTool(t, s, "image_adjust", map[string]interface{}{"sample": "ihc", "op": "brightness", "amount": 0.2}, &res)
	if res.Image.Width != 160 {
		t.Errorf("width %d", res.Image.Width)
	}
	if code := toolErrorCode(t, s, "image_adjust", map[string]interface{}{"sample": "ihc", "op": "sharpness", "amount": 1}); code != apperr.CodeInvalidParams {
		t.Errorf("unknown op code %d", code)
	}
}

func TestHistograms(t *testing.T) {
	s := newTestServer(t)
	var h struct {
		Bins      int `json:"bins"`
		Histogram struct {
			Counts []float64 `json:"counts"`
		} `json:"histogram"`
		Cumulative []float64 `json:"cumulative"`
	}
	runTool(t, s, "image_histogram", map[string]interface{}{"sample": "nuclei", "bins": 16, "cumulative": true}, &h)
	if h.Bins != 16 || len(h.Histogram.Counts) != 16 || len(h.Cumulative) != 16 {
		t.Fatalf("histogram sizes: bins %d counts %d cdf %d", h.Bins, len(h.Histogram.Counts), len(h.Cumulative))
	}
	if last := h.Cumulative[15]; last < 0.999 || last > 1.001 {
		t.Errorf("cdf should end at 1, got %g", last)
	}

	var ch struct {
		Red []int `json:"red"`
	}
	runTool(t, s, "image_channel_histograms", map[string]interface{}{"sample": "ihc"}, &ch)
	if len(ch.Red) != 256 {
		t.Errorf("red histogram length %d", len(ch.Red))
	}
}

func TestThreshold(t *testing.T) {
	s := newTestServer(t)
	path := writeTestImage(t, "bimodal.png", twoSquares(50, 200))

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantMethod string
		wantFrac   float64
	}{
		{"otsu default", map[string]interface{}{}, "otsu", 0.125},
		{"mean", map[string]interface{}{"method": "mean"}, "mean", 0.125},
		{"value", map[string]interface{}{"value": 0.5}, "value", 0.125},
		{"range", map[string]interface{}{"low": 0.1, "high": 0.5}, "range", 0.875},
		{"preview", map[string]interface{}{"preview_level": 0.5}, "preview", 0.125},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["path"] = path
			var res ThresholdResult
			runTool(t, s, "image_threshold", tt.args, &res)
			if res.Method != tt.wantMethod {
				t.Errorf("method %s, want %s", res.Method, tt.wantMethod)
			}
			if res.Fraction != tt.wantFrac {
				t.Errorf("fraction %g, want %g", res.Fraction, tt.wantFrac)
			}
		})
	}

	for _, args := range []map[string]interface{}{
		{"path": path, "method": "magic"},
		{"path": path, "low": 0.1},
		{"path": path, "low": 0.5, "high": 0.1},
	} {
		if code := toolErrorCode(t, s, "image_threshold", args); code != apperr.CodeInvalidParams {
			t.Errorf("%v: code %d", args, code)
		}
	}

	var cmp struct {
		Results []struct {
			Method string `json:"method"`
		} `json:"results"`
	}
	runTool(t, s, "image_threshold_compare", map[string]interface{}{"path": path}, &cmp)
	if len(cmp.Results) != 7 {
		t.Errorf("compare returned %d methods", len(cmp.Results))
	}
}

func TestThresholdLocal(t *testing.T) {
	s := newTestServer(t)
	var res struct {
		Method   string              `json:"method"`
		Window   int                 `json:"window_size"`
		Fraction float64             `json:"foreground_fraction"`
		Image    imaging.ImageResult `json:"image"`
		TImage   imaging.ImageResult `json:"threshold_image"`
	}
	runTool(t, s, "image_threshold_local", map[string]interface{}{"sample": "page", "output_path": "page.png"}, &res)
	if res.Method != "sauvola" || res.Window != 15 {
		t.Errorf("defaults: %s %d", res.Method, res.Window)
	}
	if res.Fraction <= 0 || res.Fraction >= 1 {
		t.Errorf("fraction %g", res.Fraction)
	}
	if !strings.HasSuffix(res.TImage.OutputPath, "page_threshold.png") {
		t.Errorf("threshold surface path %s", res.TImage.OutputPath)
	}

	runTool(t, s, "image_threshold_local", map[string]interface{}{"sample": "page", "method": "niblack", "window_size": 9, "k": 0.5}, &res)
	if res.Method != "niblack" || res.Window != 9 {
		t.Errorf("niblack: %s %d", res.Method, res.Window)
	}

	if code := toolErrorCode(t, s, "image_threshold_local", map[string]interface{}{"sample": "page", "window_size": 8}); code != apperr.CodeInvalidParams {
		t.Errorf("even window code %d", code)
	}
}

func TestMorphology(t *testing.T) {
	s := newTestServer(t)
	path := writeTestImage(t, "squares.png", twoSquares(0, 255))

	tests := []struct {
		op    string
		extra map[string]interface{}
		check func(before, after int) bool
	}{
		{"erode", map[string]interface{}{"footprint": "square", "size": 3}, func(b, a int) bool { return a == 128 }},
		{"dilate", map[string]interface{}{"footprint": "square", "size": 3}, func(b, a int) bool { return a == 288 }},
		{"open", map[string]interface{}{"footprint": "square", "size": 3}, func(b, a int) bool { return a == b }},
		{"close", map[string]interface{}{"footprint": "square", "size": 3}, func(b, a int) bool { return a == b }},
		{"binary_median", map[string]interface{}{"footprint": "square", "size": 3}, func(b, a int) bool { return a <= b && a > 0 }},
		{"remove_small_objects", map[string]interface{}{"area_threshold": 150}, func(b, a int) bool { return a == 0 }},
		{"remove_small_objects", map[string]interface{}{}, func(b, a int) bool { return a == b }},
		{"remove_small_holes", map[string]interface{}{"area_threshold": 10}, func(b, a int) bool { return a == b }},
		{"area_opening", map[string]interface{}{"area_threshold": 150}, func(b, a int) bool { return a == 0 }},
		{"area_closing", map[string]interface{}{"area_threshold": 10}, func(b, a int) bool { return a == b }},
		{"convex_hull", map[string]interface{}{"connectivity": 2}, func(b, a int) bool { return a >= b }},
		{"skeletonize", map[string]interface{}{}, func(b, a int) bool { return a > 0 && a < b }},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			args := map[string]interface{}{"path": path, "op": tt.op}
			for k, v := range tt.extra {
				args[k] = v
			}
			var res struct {
				Before int `json:"foreground_before"`
				After  int `json:"foreground_after"`
			}
			runTool(t, s, "image_morphology", args, &res)
			if res.Before != 200 {
				t.Errorf("foreground before %d, want 200", res.Before)
			}
			if !tt.check(res.Before, res.After) {
				t.Errorf("foreground after %d (before %d)", res.After, res.Before)
			}
		})
	}

	var grey struct {
		Grey bool    `json:"grey"`
		Max  float64 `json:"max"`
	}
	runTool(t, s, "image_morphology", map[string]interface{}{"sample": "cell", "op": "white_tophat", "footprint": "disk", "size": 5}, &grey)
	if !grey.Grey || grey.Max <= 0 {
		t.Errorf("white tophat: %+v", grey)
	}
	runTool(t, s, "image_morphology", map[string]interface{}{"sample": "cell", "op": "erode", "grey": true}, &grey)
	if !grey.Grey {
		t.Error("grey erode should report grey")
	}

	for _, args := range []map[string]interface{}{
		{"path": path, "op": "explode"},
		{"path": path},
		{"path": path, "op": "erode", "footprint": "hexagon"},
		{"path": path, "op": "remove_small_objects", "connectivity": 3},
	} {
		if code := toolErrorCode(t, s, "image_morphology", args); code != apperr.CodeInvalidParams {
			t.Errorf("%v: code %d", args, code)
		}
	}
}

func TestMorphology_AreaThresholdZero(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Defaults.AreaThreshold = 150
	path := writeTestImage(t, "sq.png", twoSquares(0, 255))

	tests := []struct {
		name      string
		area      interface{}
		wantAfter int
	}{
		{"config default removes both squares", nil, 0},
		{"explicit zero keeps everything", 0, 200},
		{"explicit 100 keeps squares of area 100", 100, 200},
		{"explicit 101 removes them", 101, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{"path": path, "op": "remove_small_objects"}
			if tt.area != nil {
				args["area_threshold"] = tt.area
			}
			var res struct {
				After int `json:"foreground_after"`
			}
			runTool(t, s, "image_morphology", args, &res)
			if res.After != tt.wantAfter {
				t.Errorf("foreground after %d, want %d", res.After, tt.wantAfter)
			}
		})
	}

	args := map[string]interface{}{"path": path, "op": "remove_small_objects", "area_threshold": -1}
	if code := toolErrorCode(t, s, "image_morphology", args); code != apperr.CodeInvalidParams {
		t.Errorf("negative area code %d", code)
	}
}

func TestFilters(t *testing.T) {
	s := newTestServer(t)
	filterNames := []string{
		"mean", "median", "minimum", "maximum", "gaussian", "dog", "laplace", "log",
		"sobel", "sobel_h", "sobel_v", "prewitt", "prewitt_h", "prewitt_v", "roberts",
		"unsharp_mask",
	}
	for _, f := range filterNames {
		t.Run(f, func(t *testing.T) {
			var res FilterResult
			runTool(t, s, "image_filter", map[string]interface{}{"sample": "faces", "filter": f}, &res)
			if res.Filter != f || res.Image.Width != 25 {
				t.Errorf("result %+v", res)
			}
			if res.Min > res.Max {
				t.Errorf("range %g..%g", res.Min, res.Max)
			}
		})
	}

	for _, f := range []string{"sato", "meijering", "frangi"} {
		t.Run(f, func(t *testing.T) {
			var res FilterResult
			runTool(t, s, "image_filter", map[string]interface{}{
				"sample": "faces", "filter": f, "sigmas": []float64{1, 2}, "black_ridges": false,
			}, &res)
			if res.Min < 0 {
				t.Errorf("ridge response should be non-negative, min %g", res.Min)
			}
		})
	}

	var edges struct {
		Fraction float64 `json:"edge_fraction"`
	}
	runTool(t, s, "image_filter", map[string]interface{}{
		"path": writeTestImage(t, "sq.png", twoSquares(0, 255)), "filter": "canny",
	}, &edges)
	if edges.Fraction <= 0 || edges.Fraction >= 0.5 {
		t.Errorf("canny edge fraction %g", edges.Fraction)
	}

	var med FilterResult
	runTool(t, s, "image_filter", map[string]interface{}{"sample": "ihc", "filter": "median_rgb", "radius": 2}, &med)
	if med.Image.Width != 160 {
		t.Errorf("median rgb width %d", med.Image.Width)
	}

	for _, args := range []map[string]interface{}{
		{"sample": "faces"},
		{"sample": "faces", "filter": "bilateral"},
		{"sample": "faces", "filter": "gaussian", "sigma": -1},
		{"sample": "faces", "filter": "gaussian", "scaling": "log"},
	} {
		if code := toolErrorCode(t, s, "image_filter", args); code != apperr.CodeInvalidParams {
			t.Errorf("%v: code %d", args, code)
		}
	}
}

func TestAddNoise_Reproducible(t *testing.T) {
	s := newTestServer(t)
	var a, b, c imageOnly
	runTool(t, s, "image_add_noise", map[string]interface{}{"sample": "faces", "sigma": 0.05, "seed": 7}, &a)
	runTool(t, s, "image_add_noise", map[string]interface{}{"sample": "faces", "sigma": 0.05, "seed": 7}, &b)
	runTool(t, s, "image_add_noise", map[string]interface{}{"sample": "faces", "sigma": 0.05, "seed": 8}, &c)
	if a.Image.ImageBase64 != b.Image.ImageBase64 {
		t.Error("same seed should give the same image")
	}
	if a.Image.ImageBase64 == c.Image.ImageBase64 {
		t.Error("different seeds should differ")
	}
}

func TestLabelAndRegionProps(t *testing.T) {
	s := newTestServer(t)
	path := writeTestImage(t, "squares.png", twoSquares(0, 255))

	var lab struct {
		Count int   `json:"count"`
		Areas []int `json:"areas"`
	}
	runTool(t, s, "image_label", map[string]interface{}{"path": path}, &lab)
	if lab.Count != 2 {
		t.Fatalf("count %d, want 2", lab.Count)
	}
	if len(lab.Areas) != 3 || lab.Areas[1] != 100 || lab.Areas[2] != 100 {
		t.Errorf("areas %v", lab.Areas)
	}

	var props struct {
		Count   int `json:"count"`
		Regions []struct {
			Label         int      `json:"label"`
			Area          int      `json:"area"`
			CentroidRow   float64  `json:"centroid_row"`
			MeanIntensity *float64 `json:"mean_intensity"`
		} `json:"regions"`
	}
	runTool(t, s, "image_region_props", map[string]interface{}{"path": path}, &props)
	if len(props.Regions) != 2 {
		t.Fatalf("regions %d", len(props.Regions))
	}
	first := props.Regions[0]
	if first.Label != 1 || first.Area != 100 || first.CentroidRow != 9.5 {
		t.Errorf("first region %+v", first)
	}
	if first.MeanIntensity == nil || *first.MeanIntensity != 1 {
		t.Errorf("mean intensity %v", first.MeanIntensity)
	}

	var pm struct {
		Property string  `json:"property"`
		Count    int     `json:"count"`
		Max      float64 `json:"max"`
	}
	runTool(t, s, "image_property_map", map[string]interface{}{"path": path, "property": "area"}, &pm)
	if pm.Property != "area" || pm.Count != 2 || pm.Max != 100 {
		t.Errorf("property map %+v", pm)
	}
	if code := toolErrorCode(t, s, "image_property_map", map[string]interface{}{"path": path, "property": "colour"}); code != apperr.CodeInvalidParams {
		t.Errorf("unknown property code %d", code)
	}
}

func TestStackTools(t *testing.T) {
	s := newTestServer(t)

	var info struct {
		Shape []int `json:"shape"`
	}
	runTool(t, s, "stack_info", map[string]interface{}{"sample": "cells3d"}, &info)
	if len(info.Shape) != 4 || info.Shape[0] != 16 || info.Shape[1] != 2 {
		t.Errorf("cells3d shape %v", info.Shape)
	}

	var proj struct {
		Method      string       `json:"method"`
		Depth       int          `json:"depth"`
		Projections []Projection `json:"projections"`
	}
	runTool(t, s, "stack_projection", map[string]interface{}{"sample": "cells3d", "output_path": "mip.png"}, &proj)
	if proj.Method != "max" || len(proj.Projections) != 2 {
		t.Fatalf("projection %+v", proj)
	}
	if !strings.HasSuffix(proj.Projections[1].Image.OutputPath, "mip_c1.png") {
		t.Errorf("channel output path %s", proj.Projections[1].Image.OutputPath)
	}

	runTool(t, s, "stack_projection", map[string]interface{}{"sample": "cells3d", "method": "std", "channel": 1}, &proj)
	if len(proj.Projections) != 1 || proj.Projections[0].Channel != 1 {
		t.Errorf("single channel projection %+v", proj.Projections)
	}

	var slice struct {
		Z       int `json:"z"`
		Channel int `json:"channel"`
	}
	runTool(t, s, "stack_slice", map[string]interface{}{"sample": "cells3d", "channel": 1}, &slice)
	if slice.Z != 8 || slice.Channel != 1 {
		t.Errorf("default slice %+v", slice)
	}

	dir := t.TempDir()
	for _, name := range []string{"s0.png", "s1.png", "s2.png"} {
		src := writeTestImage(t, name, twoSquares(10, 200))
		data, err := os.ReadFile(src)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	runTool(t, s, "stack_info", map[string]interface{}{"glob": filepath.Join(dir, "*.png")}, &info)
	if info.Shape[0] != 3 || info.Shape[1] != 1 {
		t.Errorf("glob stack shape %v", info.Shape)
	}

	for _, args := range []map[string]interface{}{
		{},
		{"sample": "cells3d", "glob": "*.png"},
		{"sample": "cells3d", "method": "median"},
		{"sample": "cells3d", "channel": 5},
	} {
		if code := toolErrorCode(t, s, "stack_projection", args); code != apperr.CodeInvalidParams {
			t.Errorf("%v: code %d", args, code)
		}
	}
	if code := toolErrorCode(t, s, "stack_slice", map[string]interface{}{"sample": "cells3d", "z": 99}); code != apperr.CodeInvalidParams {
		t.Errorf("z out of range code %d", code)
	}
}

func TestSegmentNuclei(t *testing.T) {
	s := newTestServer(t)
	var rep NucleiReport
	runTool(t, s, "image_segment_nuclei", map[string]interface{}{"sample": "nuclei", "output_path": "nuclei.png"}, &rep)
	if rep.Count == 0 || len(rep.Regions) != rep.Count {
		t.Errorf("count %d regions %d", rep.Count, len(rep.Regions))
	}
	if rep.Threshold <= 0 || rep.Threshold >= 1 {
		t.Errorf("threshold %g", rep.Threshold)
	}
	for _, name := range []string{"nuclei.png", "nuclei_labels.png"} {
		if _, err := os.Stat(filepath.Join(s.cfg.Output.Dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if code := toolErrorCode(t, s, "image_segment_nuclei", map[string]interface{}{"sample": "nuclei", "area_threshold": -1}); code != apperr.CodeInvalidParams {
		t.Errorf("negative area code %d", code)
	}
}

func TestOCRBinarized(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "image_ocr_binarized", map[string]interface{}{"sample": "page"})
	if resp.Error != nil {
		if resp.Error.Code == apperr.CodeToolFailure {
			t.Skipf("tesseract unavailable: %v", resp.Error.Data)
		}
		t.Fatalf("ocr failed: %+v", resp.Error)
	}

	if code := toolErrorCode(t, s, "image_ocr_binarized", map[string]interface{}{"sample": "page", "window_size": 4}); code != apperr.CodeInvalidParams {
		t.Errorf("even window code %d", code)
	}
}

func TestWithSuffix(t *testing.T) {
	tests := []struct {
		in, suffix, want string
	}{
		{"", "red", ""},
		{"out.png", "red", "out_red.png"},
		{"dir/out", "c1", "dir/out_c1.png"},
		{"/a/b.tif", "labels", "/a/b_labels.tif"},
	}
	for _, tt := range tests {
		if got := withSuffix(tt.in, tt.suffix); got != tt.want {
			t.Errorf("withSuffix(%q, %q) = %q, want %q", tt.in, tt.suffix, got, tt.want)
		}
	}
}

func TestLoadMask_BinaryPassThrough(t *testing.T) {
	s := newTestServer(t)
	m, _, err := s.loadMask(source{Path: writeTestImage(t, "m.png", twoSquares(0, 255))}, "")
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != 200 {
		t.Errorf("binary mask count %d", m.Count())
	}

	// a dim foreground must still be found by thresholding
	m, _, err = s.loadMask(source{Path: writeTestImage(t, "dim.png", twoSquares(10, 40))}, "otsu")
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != 200 {
		t.Errorf("thresholded mask count %d", m.Count())
	}
}
