package relay

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/batchssh/config"
	"github.com/grovetools/batchssh/errors"
)

func testBootstrapConfig() config.BootstrapConfig {
	return config.BootstrapConfig{
		ProbeIntervalMillis:    5,
		ProbeRetries:           100,
		LivenessIntervalMillis: 5,
	}
}

// fakeProcess is a synthetic relay process built from in-memory pipes.
type fakeProcess struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter

	done     chan struct{}
	code     atomic.Int32
	exitOnce sync.Once
}

func newFakeProcess() *fakeProcess {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	return &fakeProcess{
		stdinR:  stdinR,
		stdinW:  stdinW,
		stdoutR: stdoutR,
		stdoutW: stdoutW,
		done:    make(chan struct{}),
	}
}

func (p *fakeProcess) Stdin() io.Writer  { return p.stdinW }
func (p *fakeProcess) Stdout() io.Reader { return p.stdoutR }

func (p *fakeProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *fakeProcess) ExitCode() int { return int(p.code.Load()) }

func (p *fakeProcess) WaitExit() int {
	<-p.done
	return int(p.code.Load())
}

func (p *fakeProcess) Terminate() { p.exit(143) }

func (p *fakeProcess) exit(code int) {
	p.exitOnce.Do(func() {
		p.code.Store(int32(code))
		close(p.done)
		p.stdoutW.Close()
		p.stdinR.Close()
	})
}

// shellSim emulates the remote side: a raw echoing shell that answers the
// first probe, accepts the nested-shell handoff, and then answers the
// second probe. Lines that belong to neither handshake stage are recorded
// together with whether the nested shell was active when they arrived.
type shellSim struct {
	p *fakeProcess

	exitOn   string // user line that makes the process exit
	exitCode int

	mu        sync.Mutex
	nested    bool
	answered1 bool
	answered2 bool
	received  []string
	inNested  []bool
}

func runShellSim(p *fakeProcess, exitOn string, exitCode int) *shellSim {
	s := &shellSim{p: p, exitOn: exitOn, exitCode: exitCode}

	probe1 := strings.TrimSuffix(sentinelProbe(interactiveSentinel), "\n")
	probe2 := strings.TrimSuffix(sentinelProbe(targetSentinel), "\n")
	enter := strings.TrimSuffix(enterTargetShell, "\n")

	go func() {
		scanner := bufio.NewScanner(p.stdinR)
		for scanner.Scan() {
			line := scanner.Text()
			switch line {
			case probe1:
				if !s.isNested() && s.answerOnce(&s.answered1) {
					// A raw interactive shell echoes the typed command and
					// then prints its result.
					fmt.Fprintf(p.stdoutW, "%s\n%s\n", line, interactiveSentinel)
				}
			case enter:
				s.setNested(true)
			case probe2:
				if s.isNested() && s.answerOnce(&s.answered2) {
					fmt.Fprintf(p.stdoutW, "%s\n", targetSentinel)
				}
			default:
				s.record(line)
				if s.exitOn != "" && line == s.exitOn {
					s.p.exit(s.exitCode)
					return
				}
			}
		}
	}()
	return s
}

func (s *shellSim) isNested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nested
}

// answerOnce reports whether the probe should be answered, flipping the
// flag so duplicate probes racing the confirmation never emit a marker
// after the pumps have gone transparent.
func (s *shellSim) answerOnce(flag *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

func (s *shellSim) setNested(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nested = v
}

func (s *shellSim) record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, line)
	s.inNested = append(s.inNested, s.nested)
}

func (s *shellSim) lines() ([]string, []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.received...), append([]bool{}, s.inNested...)
}

// safeBuffer is a Writer usable from the output pump goroutine.
type safeBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.b.Write(p)
}

func (sb *safeBuffer) String() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.b.String()
}

func TestSessionBootstrapAndRelay(t *testing.T) {
	proc := newFakeProcess()
	sim := runShellSim(proc, "hostname", 0)

	// The user's input exists before the handshake even starts; it must
	// not reach the process until the target shell is confirmed, and must
	// not be lost.
	in := strings.NewReader("hostname\n")
	out := &safeBuffer{}

	session := NewSession(proc, in, out, testBootstrapConfig())
	code, err := session.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Fatalf("Run() code = %d, want 0", code)
	}

	lines, nested := sim.lines()
	if len(lines) != 1 || lines[0] != "hostname" {
		t.Fatalf("process received %v, want exactly [hostname]", lines)
	}
	if !nested[0] {
		t.Error("user input reached the process before the target shell was up")
	}

	// Handshake noise never reaches the user.
	for _, marker := range []string{interactiveSentinel, targetSentinel, "$("} {
		if strings.Contains(out.String(), marker) {
			t.Errorf("user output %q contains handshake text %q", out.String(), marker)
		}
	}
}

func TestOutputForwardedVerbatimAfterReady(t *testing.T) {
	proc := newFakeProcess()
	out := &safeBuffer{}
	session := NewSession(proc, strings.NewReader(""), out, testBootstrapConfig())

	session.state.advance(StageTargetShellReady)
	session.handleOutput([]byte("some real output\n"))
	session.handleOutput([]byte("partial"))

	if out.String() != "some real output\npartial" {
		t.Fatalf("out = %q, post-ready chunks must pass through verbatim", out.String())
	}
}

func TestSentinelStraddlingSingleChunk(t *testing.T) {
	// Coalesced delivery can put both sentinels in one chunk: both
	// transitions apply, in order, and the chunk is fully discarded.
	proc := newFakeProcess()
	out := &safeBuffer{}
	session := NewSession(proc, strings.NewReader(""), out, testBootstrapConfig())

	chunk := []byte(interactiveSentinel + "\n" + targetSentinel + "\ntrailing noise\n")
	session.handleOutput(chunk)

	if got := session.state.current(); got != StageTargetShellReady {
		t.Fatalf("stage = %v, want %v", got, StageTargetShellReady)
	}
	if out.String() != "" {
		t.Fatalf("out = %q, the straddling chunk must be discarded entirely", out.String())
	}

	// The very next chunk is real output.
	session.handleOutput([]byte("hello\n"))
	if out.String() != "hello\n" {
		t.Fatalf("out = %q, want %q", out.String(), "hello\n")
	}
}

func TestSentinelSplitAcrossChunks(t *testing.T) {
	// A sentinel can arrive split over two reads; the scan must join the
	// pieces, and neither fragment may reach the user.
	proc := newFakeProcess()
	out := &safeBuffer{}
	session := NewSession(proc, strings.NewReader(""), out, testBootstrapConfig())

	half := len(interactiveSentinel) / 2
	session.handleOutput([]byte("noise " + interactiveSentinel[:half]))
	if got := session.state.current(); got != StageNotStarted {
		t.Fatalf("stage = %v after a fragment, want %v", got, StageNotStarted)
	}
	session.handleOutput([]byte(interactiveSentinel[half:] + "\n"))

	if got := session.state.current(); got != StageInteractiveReady {
		t.Fatalf("stage = %v, want %v", got, StageInteractiveReady)
	}
	if out.String() != "" {
		t.Fatalf("out = %q, handshake fragments must be discarded", out.String())
	}
}

func TestCleanEOFAndExitCodePropagation(t *testing.T) {
	proc := newFakeProcess()
	runShellSim(proc, "", 0)

	// Empty input source: EOF right after the handshake. The input pump
	// stops without error and the session keeps waiting for the process.
	session := NewSession(proc, strings.NewReader(""), &safeBuffer{}, testBootstrapConfig())

	go func() {
		time.Sleep(50 * time.Millisecond)
		proc.exit(7)
	}()

	code, err := session.Run()
	if err != nil {
		t.Fatalf("Run() error = %v, closing input must not be an error", err)
	}
	if code != 7 {
		t.Fatalf("Run() code = %d, want the process's own 7", code)
	}
}

func TestBootstrapTimeoutIsFatal(t *testing.T) {
	proc := newFakeProcess()
	// Consume input but never answer: the shell never comes up.
	go io.Copy(io.Discard, proc.stdinR)

	cfg := testBootstrapConfig()
	cfg.ProbeRetries = 3

	session := NewSession(proc, strings.NewReader(""), &safeBuffer{}, cfg)
	_, err := session.Run()
	if err == nil {
		t.Fatal("Run() expected bootstrap timeout")
	}
	if errors.GetCode(err) != errors.ErrCodeBootstrapTimeout {
		t.Fatalf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeBootstrapTimeout)
	}
	if proc.Alive() {
		t.Fatal("fatal bootstrap failure must terminate the relay process")
	}
}

func TestRelayDeathDuringHandshake(t *testing.T) {
	proc := newFakeProcess()
	go io.Copy(io.Discard, proc.stdinR)
	proc.exit(3)

	session := NewSession(proc, strings.NewReader(""), &safeBuffer{}, testBootstrapConfig())
	_, err := session.Run()
	if err == nil {
		t.Fatal("Run() expected error when the relay dies mid-handshake")
	}
	if errors.GetCode(err) != errors.ErrCodeRelayExited {
		t.Fatalf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeRelayExited)
	}
}
