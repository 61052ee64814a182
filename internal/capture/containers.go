package capture

import (
	"packcam/internal/services"
)

// TargetContainer is the container every finished recording should end up
// in. Local captures in another container are converted in the background
// after the session is logged.
const TargetContainer = "mp4"

// containerOption is one entry in the encoder preference list.
type containerOption struct {
	Name         string
	Ext          string
	VideoEncoder string
	AudioEncoder string
	Muxer        string
}

// containerPreferences is ordered best-first. The first option whose
// elements are all present in the local GStreamer installation wins.
var containerPreferences = []containerOption{
	{Name: "mp4", Ext: "mp4", VideoEncoder: "x264enc", AudioEncoder: "avenc_aac", Muxer: "mp4mux"},
	{Name: "webm", Ext: "webm", VideoEncoder: "vp8enc", AudioEncoder: "vorbisenc", Muxer: "webmmux"},
	{Name: "matroska", Ext: "mkv", VideoEncoder: "x264enc", AudioEncoder: "avenc_aac", Muxer: "matroskamux"},
}

// selectContainer picks the best supported container/codec combination.
// available reports whether a named element factory exists.
func selectContainer(available func(factory string) bool) (containerOption, error) {
	for _, option := range containerPreferences {
		if available(option.VideoEncoder) && available(option.AudioEncoder) && available(option.Muxer) {
			return option, nil
		}
	}
	return containerOption{}, services.Wrap(
		services.ErrCaptureUnavailable,
		"capture",
		"select container",
		"no supported encoder/muxer combination found",
		nil,
	)
}
