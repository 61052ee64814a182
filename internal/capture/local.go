package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"packcam/internal/logging"
	"packcam/internal/services"
)

// overlayRefreshInterval is how often {time}/{elapsed} are re-rendered.
// Best-effort per-frame compositing; frame accuracy is not a goal.
const overlayRefreshInterval = 250 * time.Millisecond

// LocalBackend encodes a live local device stream in-process.
//
// Pipeline shape:
//
//	v4l2src (or autovideosrc) → videoconvert → [textoverlay] → encoder ┐
//	autoaudiosrc → audioconvert → audio encoder ────────────────────── muxer → appsink
//
// The container/codec combination is probed at start from an ordered
// preference list; the encoded bytes accumulate in memory and are returned
// by Stop after an EOS flush.
type LocalBackend struct {
	deviceID string
	logger   *slog.Logger

	mu          sync.Mutex
	pipeline    *gst.Pipeline
	overlayElem *gst.Element
	target      containerOption
	eosDone     chan struct{}
	tickerStop  chan struct{}
	running     bool
	disposed    bool

	// encMu guards only the byte accumulator so the streaming thread
	// never blocks on the control mutex.
	encMu   sync.Mutex
	encoded []byte
}

// NewLocalBackend builds a local backend bound to a capture device id. An
// empty id selects the platform default device.
func NewLocalBackend(deviceID string, logger *slog.Logger) *LocalBackend {
	return &LocalBackend{
		deviceID: deviceID,
		logger:   logging.NewComponentLogger(logger, "capture.local"),
	}
}

// Start acquires the device and begins encoding.
func (b *LocalBackend) Start(ctx context.Context, opts StartOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return services.Wrap(services.ErrCaptureUnavailable, "capture", "start", "already running", nil)
	}

	gst.Init(nil)

	target, err := selectContainer(elementAvailable)
	if err != nil {
		return err
	}
	b.target = target

	pipeline, overlayElem, sink, err := b.buildPipeline(target, opts.Overlay)
	if err != nil {
		return services.Wrap(services.ErrCaptureUnavailable, "capture", "start", "build pipeline", err)
	}

	b.encMu.Lock()
	b.encoded = nil
	b.encMu.Unlock()
	b.eosDone = make(chan struct{})
	eosDone := b.eosDone
	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(s *app.Sink) gst.FlowReturn {
			sample := s.PullSample()
			if sample == nil {
				return gst.FlowOK
			}
			buffer := sample.GetBuffer()
			if buffer == nil {
				return gst.FlowOK
			}
			mapInfo := buffer.Map(gst.MapRead)
			data := mapInfo.Bytes()
			if len(data) > 0 {
				chunk := make([]byte, len(data))
				copy(chunk, data)
				b.encMu.Lock()
				b.encoded = append(b.encoded, chunk...)
				b.encMu.Unlock()
			}
			buffer.Unmap()
			return gst.FlowOK
		},
		EOSFunc: func(*app.Sink) {
			close(eosDone)
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		_ = pipeline.SetState(gst.StateNull)
		return services.Wrap(services.ErrCaptureUnavailable, "capture", "start", "device unavailable", err)
	}
	if err := waitForStartError(pipeline); err != nil {
		_ = pipeline.SetState(gst.StateNull)
		return services.Wrap(services.ErrCaptureUnavailable, "capture", "start", "pipeline failed", err)
	}

	b.pipeline = pipeline
	b.overlayElem = overlayElem
	b.running = true

	if overlayElem != nil && opts.Overlay != nil {
		b.tickerStop = make(chan struct{})
		go b.refreshOverlay(opts.Overlay, overlayElem, b.tickerStop)
	}

	b.logger.Info("local capture started",
		logging.String("container", target.Name),
		logging.String("device", b.deviceID),
		logging.Bool("overlay", opts.Overlay != nil))
	return nil
}

// Stop flushes the encoder and returns the in-memory artifact.
func (b *LocalBackend) Stop(ctx context.Context) (Artifact, error) {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return Artifact{}, services.Wrap(services.ErrCaptureUnavailable, "capture", "stop", "not running", nil)
	}
	pipeline := b.pipeline
	eosDone := b.eosDone
	b.stopOverlayLocked()
	b.mu.Unlock()

	pipeline.SendEvent(gst.NewEOSEvent())
	select {
	case <-eosDone:
	case <-time.After(5 * time.Second):
		b.logger.Warn("encoder flush timed out, returning buffered data")
	case <-ctx.Done():
	}

	_ = pipeline.SetState(gst.StateNull)

	b.encMu.Lock()
	encoded := b.encoded
	b.encoded = nil
	b.encMu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	artifact := Artifact{
		Bytes:     encoded,
		Container: b.target.Name,
		Ext:       b.target.Ext,
	}
	b.pipeline = nil
	b.overlayElem = nil
	b.running = false
	b.logger.Info("local capture stopped", logging.Int("bytes", len(artifact.Bytes)))
	return artifact, nil
}

// Dispose releases the device and overlay loop. Safe to call repeatedly.
func (b *LocalBackend) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed && !b.running {
		return
	}
	b.stopOverlayLocked()
	if b.pipeline != nil {
		_ = b.pipeline.SetState(gst.StateNull)
		b.pipeline = nil
	}
	b.overlayElem = nil
	b.encMu.Lock()
	b.encoded = nil
	b.encMu.Unlock()
	b.running = false
	b.disposed = true
}

func (b *LocalBackend) stopOverlayLocked() {
	if b.tickerStop != nil {
		close(b.tickerStop)
		b.tickerStop = nil
	}
}

func (b *LocalBackend) refreshOverlay(spec *OverlaySpec, elem *gst.Element, stop <-chan struct{}) {
	ticker := time.NewTicker(overlayRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			elem.SetProperty("text", spec.Render(now))
		}
	}
}

func (b *LocalBackend) buildPipeline(target containerOption, overlay *OverlaySpec) (*gst.Pipeline, *gst.Element, *app.Sink, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, nil, nil, err
	}

	var src *gst.Element
	if b.deviceID != "" {
		src, err = gst.NewElement("v4l2src")
		if err == nil {
			src.SetProperty("device", b.deviceID)
		}
	}
	if src == nil {
		if src, err = gst.NewElement("autovideosrc"); err != nil {
			return nil, nil, nil, err
		}
	}

	videoConvert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, nil, nil, err
	}

	var overlayElem *gst.Element
	if overlay != nil {
		overlayElem, err = gst.NewElement("textoverlay")
		if err != nil {
			return nil, nil, nil, err
		}
		overlayElem.SetProperty("text", overlay.Render(overlay.StartedAt))
		overlayElem.SetProperty("valignment", 2) // top
		overlayElem.SetProperty("halignment", 0) // left
		overlayElem.SetProperty("shaded-background", true)
		overlayElem.SetProperty("draw-shadow", true)
		overlayElem.SetProperty("font-desc", "Sans, 22")
		overlayElem.SetProperty("xpad", 24)
		overlayElem.SetProperty("ypad", 24)
	}

	videoEncoder, err := gst.NewElement(target.VideoEncoder)
	if err != nil {
		return nil, nil, nil, err
	}
	if target.VideoEncoder == "x264enc" {
		videoEncoder.SetProperty("speed-preset", 3) // veryfast
		videoEncoder.SetProperty("tune", 4)         // zerolatency
	}

	muxer, err := gst.NewElement(target.Muxer)
	if err != nil {
		return nil, nil, nil, err
	}
	if target.Muxer == "mp4mux" {
		// Fragmented output so the muxer never needs to seek back into
		// the appsink's byte stream.
		muxer.SetProperty("fragment-duration", 1000)
	}

	audioSrc, err := gst.NewElement("autoaudiosrc")
	if err != nil {
		return nil, nil, nil, err
	}
	audioConvert, err := gst.NewElement("audioconvert")
	if err != nil {
		return nil, nil, nil, err
	}
	audioEncoder, err := gst.NewElement(target.AudioEncoder)
	if err != nil {
		return nil, nil, nil, err
	}

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, nil, nil, err
	}
	sink.SetProperty("sync", false)

	videoChain := []*gst.Element{src, videoConvert}
	if overlayElem != nil {
		videoChain = append(videoChain, overlayElem)
	}
	videoChain = append(videoChain, videoEncoder)

	elements := append([]*gst.Element{}, videoChain...)
	elements = append(elements, muxer, audioSrc, audioConvert, audioEncoder, sink.Element)
	pipeline.AddMany(elements...)

	chain := append([]*gst.Element{}, videoChain...)
	chain = append(chain, muxer)
	if err := gst.ElementLinkMany(chain...); err != nil {
		return nil, nil, nil, err
	}
	if err := gst.ElementLinkMany(audioSrc, audioConvert, audioEncoder, muxer); err != nil {
		return nil, nil, nil, err
	}
	if err := muxer.Link(sink.Element); err != nil {
		return nil, nil, nil, err
	}

	return pipeline, overlayElem, sink, nil
}

// waitForStartError drains the bus briefly so device-open failures surface
// as start errors instead of silent empty recordings.
func waitForStartError(pipeline *gst.Pipeline) error {
	bus := pipeline.GetPipelineBus()
	deadline := time.Now().Add(700 * time.Millisecond)
	for time.Now().Before(deadline) {
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		if msg.Type() == gst.MessageError {
			return msg.ParseError()
		}
	}
	return nil
}

// elementAvailable probes the installed GStreamer registry for a factory.
func elementAvailable(factory string) bool {
	elem, err := gst.NewElement(factory)
	if err != nil || elem == nil {
		return false
	}
	return true
}

var _ Backend = (*LocalBackend)(nil)
