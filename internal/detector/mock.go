package detector

import (
	"sync"
	"time"

	"github.com/ayusman/isyarat/internal/capture"
)

// MockExtractor is a test implementation of the Extractor interface.
// By default every request is answered on a separate goroutine with the
// configured pose or error. With hold enabled, requests stay outstanding
// until Resolve or Fail is called, which lets tests deliver late callbacks.
type MockExtractor struct {
	mu       sync.Mutex
	listener Listener
	pose     PoseVector
	err      error
	syncErr  error
	delay    time.Duration
	hold     bool
	held     []uint64
	calls    []uint64
	frames   []*capture.Frame
	wg       sync.WaitGroup
}

// NewMockExtractor creates a new MockExtractor instance.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// SetListener installs the callback target.
func (m *MockExtractor) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// SetPose sets the pose delivered to OnResult.
func (m *MockExtractor) SetPose(pose PoseVector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = pose
	m.err = nil
}

// SetHands sets the delivered pose from hand landmarks.
func (m *MockExtractor) SetHands(hands ...HandLandmarks) {
	m.SetPose(NewPoseVector(hands, false))
}

// SetError makes requests fail through OnError.
func (m *MockExtractor) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetSyncError makes DetectAsync itself return err.
func (m *MockExtractor) SetSyncError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncErr = err
}

// SetDelay delays every callback by d.
func (m *MockExtractor) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetHold controls whether requests are left outstanding.
func (m *MockExtractor) SetHold(hold bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = hold
}

// DetectAsync records the request, releases the frame and schedules the
// callback.
func (m *MockExtractor) DetectAsync(id uint64, frame *capture.Frame) error {
	if frame != nil {
		frame.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, id)
	m.frames = append(m.frames, frame)

	if m.syncErr != nil {
		return m.syncErr
	}

	if m.hold {
		m.held = append(m.held, id)
		return nil
	}

	listener, pose, err, delay := m.listener, m.pose, m.err, m.delay
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if delay > 0 {
			time.Sleep(delay)
		}
		deliver(listener, id, pose, err)
	}()

	return nil
}

// Resolve answers a held request with the configured pose or error.
func (m *MockExtractor) Resolve(id uint64) {
	m.mu.Lock()
	listener, pose, err := m.listener, m.pose, m.err
	m.release(id)
	m.mu.Unlock()

	deliver(listener, id, pose, err)
}

// Fail answers a held request with err.
func (m *MockExtractor) Fail(id uint64, err error) {
	m.mu.Lock()
	listener := m.listener
	m.release(id)
	m.mu.Unlock()

	if listener != nil {
		listener.OnError(id, err)
	}
}

// Held returns the ids of outstanding held requests.
func (m *MockExtractor) Held() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.held...)
}

// Calls returns the ids passed to DetectAsync, in order.
func (m *MockExtractor) Calls() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.calls...)
}

// Frames returns the frames passed to DetectAsync, in order.
func (m *MockExtractor) Frames() []*capture.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*capture.Frame(nil), m.frames...)
}

// Close waits for scheduled callbacks.
func (m *MockExtractor) Close() error {
	m.wg.Wait()
	return nil
}

// release must be called with m.mu held.
func (m *MockExtractor) release(id uint64) {
	for i, h := range m.held {
		if h == id {
			m.held = append(m.held[:i], m.held[i+1:]...)
			return
		}
	}
}

func deliver(listener Listener, id uint64, pose PoseVector, err error) {
	if listener == nil {
		return
	}
	if err != nil {
		listener.OnError(id, err)
		return
	}
	listener.OnResult(id, pose)
}
