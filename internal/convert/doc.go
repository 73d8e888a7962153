// Package convert turns an uploaded audio file into a requested output format.
//
// Two adapters do the work, both by shelling out to ffmpeg:
//   - DRMConverter decrypts Audible AAX files with the caller's activation
//     bytes and encodes them in a single ffmpeg invocation.
//   - StandardConverter probes the input with ffprobe and, if it decodes as
//     audio, re-encodes it with ffmpeg.
//
// Callers use Dispatcher, which picks the adapter from the input extension
// and returns adapter errors unchanged. Every error carries one of the
// services markers (ErrInvalidActivationKey, ErrExternalTool, ErrDecode,
// ErrEncode) so transports can classify it.
package convert
