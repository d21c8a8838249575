package server

import (
	"github.com/ironsheep/bioimage-lab-mcp/internal/colormap"
	"github.com/ironsheep/bioimage-lab-mcp/internal/measure"
	"github.com/ironsheep/bioimage-lab-mcp/internal/stack"
	"github.com/ironsheep/bioimage-lab-mcp/internal/threshold"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

type props map[string]interface{}

func str(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func num(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": desc}
}

func integer(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": desc}
}

func boolean(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": desc}
}

func enum(desc string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc, "enum": values}
}

func numbers(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "number"},
		"description": desc,
	}
}

// imageInput adds the path/sample pair every image tool accepts.
func imageInput(p props) props {
	p["path"] = str("Absolute path to the image file (PNG, JPEG, GIF, TIFF, BMP)")
	p["sample"] = str("Name of a built-in sample image instead of a path (see image_samples)")
	return p
}

// imageOutput adds image input plus the optional output file.
func imageOutput(p props) props {
	imageInput(p)
	p["output_path"] = str("Optional file to also write the PNG to; relative paths use the configured output dir")
	return p
}

// stackInput adds the volume sources accepted by the stack tools.
func stackInput(p props) props {
	p["sample"] = str("Name of a sample stack, e.g. cells3d")
	p["path"] = str("Animated GIF (one slice per frame) or a single image")
	p["glob"] = str("Glob of slice files, loaded in sorted order")
	return p
}

func schema(p props, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}(p),
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var scalingProp = enum("How output values map to gray levels: clip to [0,1] or stretch min..max", "clip", "stretch")

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	thresholdMethods := append([]string{}, threshold.Methods...)
	footprints := enum("Structuring element shape", "square", "rectangle", "disk", "diamond")
	connectivity := integer("1 joins edge neighbours, 2 also joins diagonal neighbours")

	return []Tool{
		// Loading and inspection
		{
			Name:        "image_load",
			Description: "Load an image file or sample and return its dimensions, format and bit depth.",
			InputSchema: schema(imageInput(props{})),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image.",
			InputSchema: schema(imageInput(props{})),
		},
		{
			Name:        "image_info",
			Description: "Describe an image as an array: dtype, shape, channels, raw and float value range, and the range after int16 and uint8 conversion.",
			InputSchema: schema(imageInput(props{})),
		},
		{
			Name:        "image_samples",
			Description: "List the built-in sample datasets (nuclei, cells3d, ihc, page, retina, hubble, cell, faces) with kind, dtype and shape.",
			InputSchema: schema(props{}),
		},
		{
			Name:        "image_crop",
			Description: "Crop a rectangular region and return it as PNG, optionally rescaled to zoom in.",
			InputSchema: schema(imageOutput(props{
				"x1":    integer("Left edge X coordinate (0-based, inclusive)"),
				"y1":    integer("Top edge Y coordinate (0-based, inclusive)"),
				"x2":    integer("Right edge X coordinate (exclusive)"),
				"y2":    integer("Bottom edge Y coordinate (exclusive)"),
				"scale": num("Scale factor for the output (default 1)"),
			}), "x1", "y1", "x2", "y2"),
		},
		{
			Name:        "image_sample_color",
			Description: "Read one pixel: raw value in the image dtype, float value, hex, RGB and HSV.",
			InputSchema: schema(imageInput(props{
				"x": integer("X coordinate (0-based)"),
				"y": integer("Y coordinate (0-based)"),
			}), "x", "y"),
		},
		{
			Name:        "image_intensity_profile",
			Description: "Return the normalised intensities along one row or column with min, max and mean.",
			InputSchema: schema(imageInput(props{
				"axis":  enum("Profile direction (default row)", "row", "column"),
				"index": integer("Row or column index"),
			}), "index"),
		},
		{
			Name:        "image_measure_distance",
			Description: "Measure the distance and angle between two points.",
			InputSchema: schema(imageInput(props{
				"x1": integer("First point X"),
				"y1": integer("First point Y"),
				"x2": integer("Second point X"),
				"y2": integer("Second point Y"),
			}), "x1", "y1", "x2", "y2"),
		},

		// Display and colour
		{
			Name:        "image_colormap",
			Description: "Render the intensity of an image through a colormap, optionally inverted and with a colorbar.",
			InputSchema: schema(imageOutput(props{
				"colormap": map[string]interface{}{
					"type":        "string",
					"description": "Colormap name, a _r suffix reverses it, or #rrggbb for a black-to-colour ramp",
					"examples":    colormap.Names(),
				},
				"vmin":     num("Value mapped to the lowest colour (default image min)"),
				"vmax":     num("Value mapped to the highest colour (default image max)"),
				"colorbar": boolean("Append a colorbar on the right"),
				"invert":   boolean("Invert intensities (1 - v) before mapping"),
			})),
		},
		{
			Name:        "image_split_channels",
			Description: "Split a colour image into red, green and blue (or hue, saturation and value) channel images.",
			InputSchema: schema(imageOutput(props{
				"space": enum("Colour space (default rgb)", "rgb", "hsv"),
				"tint":  boolean("Render each RGB channel in its own colour"),
			})),
		},
		{
			Name:        "image_color_deconvolve",
			Description: "Separate haematoxylin, eosin and DAB stains by colour deconvolution and render one stain on its own.",
			InputSchema: schema(imageOutput(props{
				"stain": enum("Stain to isolate (default hematoxylin)", "hematoxylin", "eosin", "dab"),
			})),
		},
		{
			Name:        "image_to_gray",
			Description: "Convert a colour image to grayscale luminance (0.2125 R + 0.7154 G + 0.0721 B).",
			InputSchema: schema(imageOutput(props{})),
		},
		{
			Name:        "image_scale_channels",
			Description: "Multiply the red, green and blue channels by separate gains; a zero gain removes a channel.",
			InputSchema: schema(imageOutput(props{
				"gains": numbers("Three non-negative gains for red, green and blue"),
			}), "gains"),
		},
		{
			Name:        "image_blend",
			Description: "Composite two images of equal size: (1-weight)*first + weight*second.",
			InputSchema: schema(imageOutput(props{
				"other_path":   str("Path of the second image"),
				"other_sample": str("Sample name of the second image"),
				"weight":       num("Weight of the second image in [0, 1] (default 0.5)"),
			})),
		},

		// Geometry
		{
			Name:        "image_transform",
			Description: "Apply a geometric transform: translate, move_patch, rotate, rescale, resize, shear, flip or affine.",
			InputSchema: schema(imageOutput(props{
				"op":     enum("Transform to apply", opTranslate, opMovePatch, opRotate, opRescale, opResize, opShear, opFlip, opAffine),
				"dx":     integer("Horizontal offset in pixels (translate, move_patch)"),
				"dy":     integer("Vertical offset in pixels, positive is down (translate, move_patch)"),
				"x":      integer("Patch left edge (move_patch)"),
				"y":      integer("Patch top edge (move_patch)"),
				"size":   integer("Patch side length (move_patch)"),
				"angle":  num("Angle in degrees (rotate counter-clockwise, shear)"),
				"scale":  num("Scale factor (rescale)"),
				"width":  integer("Target width, 0 keeps aspect (resize)"),
				"height": integer("Target height, 0 keeps aspect (resize)"),
				"axis":   enum("Axis for shear and flip", "horizontal", "vertical"),
				"matrix": numbers("Forward affine matrix, 6 or 9 row-major values (affine)"),
			}), "op"),
		},
		{
			Name:        "image_swirl",
			Description: "Apply a swirl warp around the image centre or a given point.",
			InputSchema: schema(imageOutput(props{
				"strength": num("Swirl strength (default 5)"),
				"radius":   num("Extent of the swirl in pixels (default 150)"),
				"rotation": num("Additional rotation in radians"),
				"center_x": num("Swirl centre X (default image centre)"),
				"center_y": num("Swirl centre Y (default image centre)"),
			})),
		},

		// Exposure
		{
			Name:        "image_exposure_check",
			Description: "Report dtype, intensity statistics and whether the image is low contrast.",
			InputSchema: schema(imageInput(props{
				"fraction":         num("Low-contrast threshold as a fraction of the full range (default 0.05)"),
				"lower_percentile": num("Lower percentile (default 1)"),
				"upper_percentile": num("Upper percentile (default 99)"),
			})),
		},
		{
			Name:        "image_equalize",
			Description: "Spread intensities by histogram equalisation or a percentile contrast stretch.",
			InputSchema: schema(imageOutput(props{
				"method":           enum("hist (default) or stretch", "hist", "stretch"),
				"bins":             integer("Histogram bins for hist (default from config)"),
				"lower_percentile": num("Lower percentile for stretch (default 2)"),
				"upper_percentile": num("Upper percentile for stretch (default 98)"),
			})),
		},
		{
			Name:        "image_rescale_intensity",
			Description: "Rescale intensities linearly, or apply gamma, log or sigmoid correction.",
			InputSchema: schema(imageOutput(props{
				"mode":     enum("Adjustment (default rescale)", "rescale", "gamma", "log", "sigmoid"),
				"in_low":   num("Input range low (rescale; default image min)"),
				"in_high":  num("Input range high (rescale; default image max)"),
				"out_low":  num("Output range low (rescale; default 0)"),
				"out_high": num("Output range high (rescale; default 1)"),
				"gamma":    num("Gamma exponent (gamma; default 1)"),
				"gain":     num("Gain (gamma and log default 1, sigmoid default 10)"),
				"cutoff":   num("Sigmoid cutoff (default 0.5)"),
				"inverse":  boolean("Inverse log or sigmoid"),
				"scaling":  scalingProp,
			})),
		},
		{
			Name:        "image_adjust",
			Description: "Adjust an 8-bit display image: brightness, contrast, gamma, saturation or hue.",
			InputSchema: schema(imageOutput(props{
				"op":     enum("Adjustment", "brightness", "contrast", "gamma", "saturation", "hue"),
				"amount": num("Change in [-1, 1]; positive exponent for gamma; degrees for hue"),
			}), "op", "amount"),
		},
		{
			Name:        "image_histogram",
			Description: "Histogram of normalised intensities with statistics and optional cumulative distribution.",
			InputSchema: schema(imageInput(props{
				"bins":       integer("Number of bins (default from config)"),
				"cumulative": boolean("Also return the normalised cumulative distribution"),
			})),
		},
		{
			Name:        "image_channel_histograms",
			Description: "256-bin 8-bit histograms of the red, green and blue channels and luminance.",
			InputSchema: schema(imageInput(props{
				"cumulative": boolean("Return cumulative histograms"),
			})),
		},

		// Thresholding and morphology
		{
			Name:        "image_threshold",
			Description: "Segment by a global threshold method, a fixed value, a value range or an 8-bit preview level.",
			InputSchema: schema(imageOutput(props{
				"method":        enum("Global method (default otsu)", thresholdMethods...),
				"value":         num("Fixed threshold; foreground is value > threshold"),
				"low":           num("Range mask lower bound (exclusive)"),
				"high":          num("Range mask upper bound (exclusive)"),
				"preview_level": num("8-bit preview level in [0, 1] on the display image"),
			})),
		},
		{
			Name:        "image_threshold_compare",
			Description: "Run every global threshold method and report each threshold with its foreground fraction.",
			InputSchema: schema(imageInput(props{})),
		},
		{
			Name:        "image_threshold_local",
			Description: "Niblack or Sauvola local thresholding; returns the mask and the threshold surface.",
			InputSchema: schema(imageOutput(props{
				"method":      enum("Local method (default sauvola)", threshold.MethodNiblack, threshold.MethodSauvola),
				"window_size": integer("Odd window size >= 3 (default 15)"),
				"k":           num("Weight of the local standard deviation (default 0.2)"),
				"r":           num("Sauvola dynamic range (default 1)"),
			})),
		},
		{
			Name:        "image_morphology",
			Description: "Binary or grey morphology: erode, dilate, open, close, tophats, binary median, small object and hole removal, area opening and closing, convex hull, skeletonize. Non-binary inputs are thresholded first.",
			InputSchema: schema(imageOutput(props{
				"op": enum("Operation",
					"erode", "dilate", "open", "close", "white_tophat", "black_tophat", "binary_median",
					"remove_small_objects", "remove_small_holes", "area_opening", "area_closing",
					"convex_hull", "skeletonize"),
				"footprint":        footprints,
				"size":             integer("Side length (square, rectangle) or radius (disk, diamond); default 3"),
				"height":           integer("Rectangle height (default size)"),
				"area_threshold":   integer("Area in pixels for the area operations (default from config)"),
				"connectivity":     connectivity,
				"threshold_method": enum("Global method used to binarise a non-binary input (default otsu)", thresholdMethods...),
				"grey":             boolean("Run erode, dilate, open or close on intensities instead of a mask"),
			}), "op"),
		},

		// Filtering
		{
			Name:        "image_filter",
			Description: "Neighbourhood filters: rank (mean, median, minimum, maximum), gaussian, dog, laplace, log, sobel, sobel_h, sobel_v, prewitt, prewitt_h, prewitt_v, roberts, unsharp_mask, sato, meijering, frangi, canny, median_rgb.",
			InputSchema: schema(imageOutput(props{
				"filter": enum("Filter",
					"mean", "median", "minimum", "maximum", "gaussian", "dog", "laplace", "log",
					"sobel", "sobel_h", "sobel_v", "prewitt", "prewitt_h", "prewitt_v", "roberts",
					"unsharp_mask", "sato", "meijering", "frangi", "canny", "median_rgb"),
				"sigma":          num("Gaussian sigma (default from config)"),
				"low_sigma":      num("Smaller sigma for dog (default sigma)"),
				"high_sigma":     num("Larger sigma for dog (default 1.6 * low_sigma)"),
				"radius":         num("Radius for unsharp_mask and median_rgb (default 1)"),
				"amount":         num("Sharpening amount for unsharp_mask (default 1)"),
				"footprint":      footprints,
				"size":           integer("Footprint size for rank filters (default disk radius 1)"),
				"sigmas":         numbers("Scales for the ridge filters (default 1,3,5,7,9)"),
				"black_ridges":   boolean("Ridge filters detect dark ridges (default true)"),
				"low_threshold":  num("Canny hysteresis low threshold (default 0.1)"),
				"high_threshold": num("Canny hysteresis high threshold (default 0.2)"),
				"scaling":        scalingProp,
			}), "filter"),
		},
		{
			Name:        "image_add_noise",
			Description: "Add reproducible Gaussian noise to the normalised intensities.",
			InputSchema: schema(imageOutput(props{
				"sigma": num("Noise standard deviation (default 0.1)"),
				"seed":  integer("Random seed (default 0)"),
			})),
		},

		// Measurement
		{
			Name:        "image_label",
			Description: "Label connected components of a mask (thresholding non-binary inputs) and render them in distinct colours.",
			InputSchema: schema(imageOutput(props{
				"threshold_method": enum("Global method used to binarise a non-binary input (default otsu)", thresholdMethods...),
				"connectivity":     connectivity,
			})),
		},
		{
			Name:        "image_region_props",
			Description: "Measure every labelled object: area, centroid, bbox, perimeter, axes, eccentricity, orientation, solidity, extent and intensity statistics.",
			InputSchema: schema(imageInput(props{
				"threshold_method": enum("Global method used to binarise a non-binary input (default otsu)", thresholdMethods...),
				"connectivity":     connectivity,
			})),
		},
		{
			Name:        "image_property_map",
			Description: "Paint every labelled object with one of its measured properties and render it through a colormap.",
			InputSchema: schema(imageOutput(props{
				"property":         enum("Property to paint (default area)", measure.PropertyNames()...),
				"colormap":         str("Colormap name (default viridis)"),
				"threshold_method": enum("Global method used to binarise a non-binary input (default otsu)", thresholdMethods...),
				"connectivity":     connectivity,
			})),
		},

		// Stacks
		{
			Name:        "stack_info",
			Description: "Report the Z, channel, height and width shape, dtype and value range of an image stack.",
			InputSchema: schema(stackInput(props{})),
		},
		{
			Name:        "stack_projection",
			Description: "Collapse a stack along Z by max, min, mean, sum or std, for one channel or all channels.",
			InputSchema: schema(stackInput(props{
				"method":      enum("Projection (default max)", stack.Methods...),
				"channel":     integer("Channel to project (default all)"),
				"scaling":     scalingProp,
				"output_path": str("Optional file for the PNG; with several channels a _cN suffix is added"),
			})),
		},
		{
			Name:        "stack_slice",
			Description: "Extract one Z slice of one channel from a stack.",
			InputSchema: schema(stackInput(props{
				"z":           integer("Slice index (default the middle slice)"),
				"channel":     integer("Channel index (default 0)"),
				"scaling":     scalingProp,
				"output_path": str("Optional file to also write the PNG to"),
			})),
		},

		// Pipelines
		{
			Name:        "image_segment_nuclei",
			Description: "Segment bright nuclei: smoothed threshold, hole closing, median smoothing, speck removal, labelling and region properties.",
			InputSchema: schema(imageOutput(props{
				"sigma":          num("Gaussian sigma before thresholding (default from config)"),
				"method":         enum("Global threshold method (default otsu)", thresholdMethods...),
				"area_threshold": integer("Largest hole filled and speck removed, in pixels (default from config)"),
			})),
		},
		{
			Name:        "image_ocr_binarized",
			Description: "Binarise a document with a local threshold and read it with Tesseract OCR.",
			InputSchema: schema(imageOutput(props{
				"method":      enum("Local method (default sauvola)", threshold.MethodNiblack, threshold.MethodSauvola),
				"window_size": integer("Odd window size >= 3 (default 25)"),
				"k":           num("Weight of the local standard deviation (default 0.2)"),
				"r":           num("Sauvola dynamic range (default 1)"),
				"language":    str("Tesseract language code (default from config)"),
			})),
		},
	}
}
