// Package ffprobe wraps ffprobe JSON output for the audio conversion pipeline.
//
// Inspect runs ffprobe and returns a Result; helper methods report audio
// stream counts, duration, bitrate and container tags. The standard
// converter uses it to decide whether an upload is decodable before
// ffmpeg is asked to transcode it.
package ffprobe
