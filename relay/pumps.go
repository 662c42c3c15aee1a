package relay

import (
	"bytes"
	"io"
	"time"

	"github.com/grovetools/batchssh/errors"
)

const chunkSize = 4096

// readChunks feeds r to the channel in whatever sizes the source delivers.
// Short reads are forwarded as-is; the channel closes on EOF or error.
func readChunks(r io.Reader, chunks chan<- []byte) {
	defer close(chunks)
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			chunks <- chunk
		}
		if err != nil {
			return
		}
	}
}

// runOutputPump moves bytes from the process to the user's output sink.
// Until the handshake completes every chunk is handshake noise: it is
// scanned for sentinels and discarded. Afterwards chunks are forwarded
// verbatim.
func (s *Session) runOutputPump() {
	chunks := make(chan []byte)
	go readChunks(s.proc.Stdout(), chunks)

	tick := time.NewTicker(s.cfg.LivenessInterval())
	defer tick.Stop()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			s.handleOutput(chunk)
		case <-tick.C:
			if !s.proc.Alive() {
				s.drainOutput(chunks)
				return
			}
		}
	}
}

// handleOutput makes the discard-or-forward decision for one chunk. The
// decision is taken once, before any sentinel scan, so a chunk that itself
// completes the handshake is still fully discarded.
func (s *Session) handleOutput(chunk []byte) {
	if s.state.current() < StageTargetShellReady {
		s.consumeHandshake(chunk)
		return
	}
	if _, err := s.out.Write(chunk); err != nil {
		s.log.WithError(err).Debug("Output sink closed")
	}
}

// consumeHandshake scans a pre-ready chunk for the sentinels, stage 1
// strictly before stage 2: coalesced delivery may put both sentinels in one
// chunk, and both transitions must then be applied in order. A sentinel can
// also straddle a chunk boundary, so the scan runs over the previous
// chunk's tail as well. The chunk never reaches the user.
func (s *Session) consumeHandshake(chunk []byte) {
	buf := append(s.carry, chunk...)

	if bytes.Contains(buf, []byte(interactiveSentinel)) {
		if s.state.advance(StageInteractiveReady) {
			s.log.Debug("Interactive shell confirmed")
		}
	}
	if bytes.Contains(buf, []byte(targetSentinel)) {
		if s.state.advance(StageTargetShellReady) {
			s.log.Debug("Target shell confirmed")
		}
	}

	// Keep just enough tail to complete a sentinel split by the next read.
	keep := len(interactiveSentinel) - 1
	if len(targetSentinel) > len(interactiveSentinel) {
		keep = len(targetSentinel) - 1
	}
	if len(buf) > keep {
		buf = buf[len(buf)-keep:]
	}
	s.carry = buf
}

// drainOutput handles the chunks still in flight when the process died, so
// trailing output is not dropped. The exit closed the pipe's last write
// end, so the reader reaches EOF and closes the channel.
func (s *Session) drainOutput(chunks <-chan []byte) {
	for chunk := range chunks {
		s.handleOutput(chunk)
	}
}

// runInputPump drives the handshake and then moves bytes from the user's
// input source to the process. The real input source is not read at all
// until the target shell is confirmed: whatever the user types during
// bootstrap stays buffered upstream and is delivered afterwards.
func (s *Session) runInputPump() error {
	if err := s.probeUntil(StageInteractiveReady, sentinelProbe(interactiveSentinel), "interactive shell"); err != nil {
		return err
	}

	if _, err := io.WriteString(s.proc.Stdin(), enterTargetShell); err != nil {
		return errors.Wrap(err, errors.ErrCodeRelayExited, "relay input closed while entering target shell")
	}

	if err := s.probeUntil(StageTargetShellReady, sentinelProbe(targetSentinel), "target shell"); err != nil {
		return err
	}

	s.log.Debug("Handshake complete, forwarding input")

	chunks := make(chan []byte)
	go readChunks(s.in, chunks)

	tick := time.NewTicker(s.cfg.LivenessInterval())
	defer tick.Stop()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				s.log.Debug("Input source closed, forwarding stopped")
				return nil
			}
			if _, err := s.proc.Stdin().Write(chunk); err != nil {
				s.log.WithError(err).Info("Relay input closed, forwarding stopped")
				return nil
			}
		case <-tick.C:
			if !s.proc.Alive() {
				s.log.Info("Relay process exited, forwarding stopped")
				return nil
			}
		}
	}
}

// probeUntil writes the probe at the fixed cadence until the output pump
// confirms the stage, the retry budget runs out, or the process dies.
// Exhausting the budget is a fatal, non-retryable bootstrap failure.
func (s *Session) probeUntil(want Stage, probe string, stageName string) error {
	for attempt := 0; attempt < s.cfg.ProbeRetries; attempt++ {
		if s.state.current() >= want {
			return nil
		}
		if !s.proc.Alive() {
			return errors.RelayExited(stageName+" handshake", s.proc.ExitCode())
		}
		if _, err := io.WriteString(s.proc.Stdin(), probe); err != nil {
			return errors.Wrap(err, errors.ErrCodeRelayExited,
				"relay input closed during "+stageName+" handshake")
		}
		time.Sleep(s.cfg.ProbeInterval())
	}

	if s.state.current() >= want {
		return nil
	}
	return errors.BootstrapTimeout(stageName, s.cfg.ProbeRetries)
}
