package scanner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"unicode"

	"golang.org/x/term"

	"packcam/internal/logging"
)

// ErrInterrupted reports that the operator closed the input stream with
// Ctrl-C or Ctrl-D while the terminal was in raw mode.
var ErrInterrupted = errors.New("scanner input interrupted")

// TerminalSource feeds keystrokes from a terminal (or any reader) into a
// Decoder. When the reader is a real terminal it is switched to raw mode so
// scanner bursts arrive unbuffered, keystroke by keystroke.
type TerminalSource struct {
	reader  io.Reader
	decoder *Decoder
	logger  *slog.Logger
}

// NewTerminalSource wires a reader to a decoder.
func NewTerminalSource(r io.Reader, decoder *Decoder, logger *slog.Logger) *TerminalSource {
	return &TerminalSource{
		reader:  r,
		decoder: decoder,
		logger:  logging.NewComponentLogger(logger, "scanner"),
	}
}

// Run reads keystrokes until the context is cancelled or the stream ends.
// A pending buffer is flushed on exit.
func (s *TerminalSource) Run(ctx context.Context) error {
	if file, ok := s.reader.(*os.File); ok {
		fd := int(file.Fd())
		if term.IsTerminal(fd) {
			oldState, err := term.MakeRaw(fd)
			if err != nil {
				return err
			}
			defer func() {
				_ = term.Restore(fd, oldState)
			}()
			s.logger.Debug("terminal switched to raw mode")
		}
	}

	keys := make(chan Key)
	errc := make(chan error, 1)
	go s.readLoop(keys, errc)

	defer s.decoder.Flush()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case key := <-keys:
			s.decoder.HandleKey(key)
		}
	}
}

func (s *TerminalSource) readLoop(keys chan<- Key, errc chan<- error) {
	reader := bufio.NewReader(s.reader)
	for {
		r, _, err := reader.ReadRune()
		if err != nil {
			errc <- err
			return
		}
		switch r {
		case 0x03, 0x04: // Ctrl-C / Ctrl-D under raw mode
			errc <- ErrInterrupted
			return
		case '\r', '\n', '\t':
			keys <- Key{Terminator: true}
		default:
			if unicode.IsControl(r) {
				continue
			}
			keys <- Key{Rune: r}
		}
	}
}
