package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/isyarat/internal/capture"
)

const (
	scriptName = "landmark_service.py"

	// serviceIdleTimeout is how long the Python process may sit unused.
	serviceIdleTimeout = 30 * time.Second
)

// MediaPipeExtractor implements Extractor using a Python MediaPipe subprocess.
//
// Requests are written to the process as [8-byte id][4-byte length][jpeg],
// big-endian. Responses come back one JSON object per line:
//
//	{"id": 7, "hands": [{"points": [...], "handedness": "Right", "score": 0.9}]}
//	{"id": 8, "error": "decode failed"}
//
// Responses may arrive in any order; each is routed by id to the listener.
type MediaPipeExtractor struct {
	config     Config
	scriptPath string

	mu        sync.Mutex
	listener  Listener
	svc       *service
	closed    bool
	idleTimer *time.Timer
}

// service is one running Python process and the requests sent to it.
type service struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	pending map[uint64]struct{}
	done    chan struct{}
}

// NewMediaPipeExtractor creates a new MediaPipe extractor.
// The Python process is started lazily on first detection.
func NewMediaPipeExtractor(config Config) (*MediaPipeExtractor, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findLandmarkScript()
	}
	if scriptPath == "" {
		return nil, fmt.Errorf("%s not found", scriptName)
	}

	return &MediaPipeExtractor{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// SetListener installs the callback target.
func (e *MediaPipeExtractor) SetListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// DetectAsync encodes frame, releases it and hands the image to the service.
func (e *MediaPipeExtractor) DetectAsync(id uint64, frame *capture.Frame) error {
	data, err := encodeFrame(frame)
	frame.Close()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	svc, err := e.ensureStarted()
	if err != nil {
		return err
	}

	header := make([]byte, 12)
	binary.BigEndian.PutUint64(header[:8], id)
	binary.BigEndian.PutUint32(header[8:], uint32(len(data)))

	if _, err := svc.stdin.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := svc.stdin.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}

	svc.pending[id] = struct{}{}
	e.resetIdleTimer()

	return nil
}

// Close shuts down the Python process. Outstanding requests are failed
// with ErrServiceExited.
func (e *MediaPipeExtractor) Close() error {
	e.mu.Lock()
	e.closed = true
	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}
	svc := e.svc
	e.svc = nil
	e.mu.Unlock()

	if svc == nil {
		return nil
	}

	svc.stdin.Close()
	select {
	case <-svc.done:
	case <-time.After(5 * time.Second):
		if svc.cmd.Process != nil {
			svc.cmd.Process.Kill()
		}
		<-svc.done
	}
	return nil
}

func encodeFrame(frame *capture.Frame) ([]byte, error) {
	if frame == nil || frame.Released() {
		return nil, ErrEmptyFrame
	}
	mat := frame.Mat()
	if mat == nil || mat.Empty() {
		return nil, ErrEmptyFrame
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close, so copy out
	return append([]byte(nil), buf.GetBytes()...), nil
}

// ensureStarted must be called with e.mu held.
func (e *MediaPipeExtractor) ensureStarted() (*service, error) {
	if e.svc != nil {
		return e.svc, nil
	}

	pythonPath := e.config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	maxHands := e.config.MaxHands
	if maxHands <= 0 || maxHands > MaxHands {
		maxHands = MaxHands
	}

	cmd := exec.Command(pythonPath, e.scriptPath,
		"--max-hands", fmt.Sprint(maxHands),
		"--min-detection", fmt.Sprint(e.config.MinConfidence),
		"--min-tracking", fmt.Sprint(e.config.MinTrackingConf),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start landmark service: %w", err)
	}

	svc := &service{
		cmd:     cmd,
		stdin:   stdin,
		pending: make(map[uint64]struct{}),
		done:    make(chan struct{}),
	}
	e.svc = svc
	go e.read(svc, stdout)

	log.Printf("Started landmark service (pid %d)", cmd.Process.Pid)
	return svc, nil
}

// read routes responses from svc until its output closes, then fails every
// request svc still owes an answer for.
func (e *MediaPipeExtractor) read(svc *service, stdout io.Reader) {
	defer close(svc.done)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var resp response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			log.Printf("Invalid landmark service response: %v", err)
			continue
		}

		e.mu.Lock()
		_, ok := svc.pending[resp.ID]
		delete(svc.pending, resp.ID)
		listener := e.listener
		e.mu.Unlock()

		if !ok || listener == nil {
			continue
		}

		if resp.Error != "" {
			listener.OnError(resp.ID, errors.New(resp.Error))
			continue
		}
		listener.OnResult(resp.ID, resp.pose(e.config.MirrorX))
	}

	if err := svc.cmd.Wait(); err != nil {
		log.Printf("Landmark service exited: %v", err)
	}

	e.mu.Lock()
	if e.svc == svc {
		e.svc = nil
	}
	orphans := make([]uint64, 0, len(svc.pending))
	for id := range svc.pending {
		orphans = append(orphans, id)
	}
	svc.pending = map[uint64]struct{}{}
	listener := e.listener
	e.mu.Unlock()

	if listener == nil {
		return
	}
	for _, id := range orphans {
		listener.OnError(id, ErrServiceExited)
	}
}

// resetIdleTimer must be called with e.mu held.
func (e *MediaPipeExtractor) resetIdleTimer() {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.idleTimer = time.AfterFunc(serviceIdleTimeout, e.stopIfIdle)
}

func (e *MediaPipeExtractor) stopIfIdle() {
	e.mu.Lock()
	defer e.mu.Unlock()

	svc := e.svc
	if svc == nil {
		return
	}
	if len(svc.pending) > 0 {
		e.idleTimer = time.AfterFunc(serviceIdleTimeout, e.stopIfIdle)
		return
	}

	// The reader goroutine reaps the process once stdin is closed
	e.svc = nil
	svc.stdin.Close()
	log.Println("Stopped idle landmark service")
}

func findLandmarkScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", scriptName),
		filepath.Join("..", "scripts", scriptName),
		filepath.Join(execDir, "scripts", scriptName),
		filepath.Join(os.Getenv("HOME"), ".isyarat", "scripts", scriptName),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".isyarat/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// response is one line from the Python service.
type response struct {
	ID    uint64     `json:"id"`
	Hands []jsonHand `json:"hands"`
	Error string     `json:"error,omitempty"`
}

func (r response) pose(mirrorX bool) PoseVector {
	hands := make([]HandLandmarks, len(r.Hands))
	for i, h := range r.Hands {
		hands[i] = h.toHandLandmarks()
	}
	return NewPoseVector(hands, mirrorX)
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
