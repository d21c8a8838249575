// Package server implements the MCP (Model Context Protocol) server for the
// bioimage lab tools.
//
// The server speaks JSON-RPC 2.0 over stdio:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Tools
//
// Every image tool takes either a "path" to an image file or the name of a
// built-in "sample". Tools that produce an image return it base64-encoded
// and, when "output_path" is set, also write it to disk so that the result
// can be fed to the next tool by path.
//
// Loading and inspection: image_load, image_dimensions, image_info,
// image_samples, image_crop, image_sample_color, image_intensity_profile,
// image_measure_distance.
//
// Display and colour: image_colormap, image_split_channels,
// image_color_deconvolve, image_to_gray, image_scale_channels, image_blend.
//
// Geometry: image_transform, image_swirl.
//
// Exposure: image_exposure_check, image_equalize, image_rescale_intensity,
// image_adjust, image_histogram, image_channel_histograms.
//
// Segmentation: image_threshold, image_threshold_compare,
// image_threshold_local, image_morphology, image_label, image_region_props,
// image_property_map, image_segment_nuclei.
//
// Filtering: image_filter, image_add_noise.
//
// Stacks: stack_info, stack_projection, stack_slice.
//
// Documents: image_ocr_binarized.
//
// # Image Caching
//
// Decoded files are cached by path for the lifetime of the process. The
// cache is bounded by processing.maxCacheImages in the configuration.
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors. Bad arguments map to
// -32602 (invalid params) and every other failure to -32000; the data field
// carries the error text.
//
// # Usage
//
//	srv := server.New(cfg, version)
//	if err := srv.Run(ctx); err != nil {
//	    logger.WithError(err).Fatal("server stopped")
//	}
package server
