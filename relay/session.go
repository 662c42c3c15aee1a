package relay

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/batchssh/config"
	"github.com/grovetools/batchssh/logging"
)

// Session wires the two pumps around a spawned relay process and reports
// its exit code. One Session serves exactly one invocation; nothing about
// the handshake survives it.
type Session struct {
	proc Process
	in   io.Reader
	out  io.Writer

	state bootstrapState
	// carry is the pre-ready scan tail; owned by the output pump goroutine.
	carry []byte
	cfg   config.BootstrapConfig
	log   *logrus.Entry
}

// NewSession creates a session relaying between the user's streams and the
// process.
func NewSession(proc Process, in io.Reader, out io.Writer, cfg config.BootstrapConfig) *Session {
	return &Session{
		proc: proc,
		in:   in,
		out:  out,
		cfg:  cfg,
		log:  logging.NewLogger("session"),
	}
}

// Run starts both pumps, blocks until the relay process ends, and returns
// its exit code. A fatal bootstrap failure kills the process and is
// returned as the error; end-of-input and process exit are not errors, the
// affected pump just stops on its own.
func (s *Session) Run() (int, error) {
	outputDone := make(chan struct{})
	go func() {
		s.runOutputPump()
		close(outputDone)
	}()

	inputErr := make(chan error, 1)
	go func() {
		inputErr <- s.runInputPump()
	}()

	exited := make(chan int, 1)
	go func() {
		exited <- s.proc.WaitExit()
	}()

	inputErrCh := inputErr
	for {
		select {
		case err := <-inputErrCh:
			if err != nil {
				s.log.WithError(err).Error("Shell bootstrap failed")
				s.proc.Terminate()
				<-exited
				return 0, err
			}
			// Clean input stop (EOF or process exit); keep waiting for
			// the process. A nil channel never fires again.
			inputErrCh = nil
		case code := <-exited:
			<-outputDone
			// An exit before the handshake completed is a bootstrap
			// failure even when the exit lands first: the input pump's
			// error names the failed stage, never a success code.
			if s.state.current() < StageTargetShellReady && inputErrCh != nil {
				if err := <-inputErrCh; err != nil {
					s.log.WithError(err).Error("Shell bootstrap failed")
					return 0, err
				}
			}
			return code, nil
		}
	}
}
