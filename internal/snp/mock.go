package snp

import (
	"net"
	"sync"
)

// MockFrame is one scripted outcome of MockSimpleNetwork.Receive. When Err
// is set it is returned instead of Data.
type MockFrame struct {
	Data []byte
	Err  error
}

// MockFilterCall records a call to ReceiveFilters.
type MockFilterCall struct {
	Enable      ReceiveFlags
	Disable     ReceiveFlags
	Reset       bool
	MCastFilter []MACAddress
}

// MockSimpleNetwork implements SimpleNetwork for testing. Receive replays
// Frames in order and reports StatusNotReady once they run out.
type MockSimpleNetwork struct {
	mu sync.Mutex

	// ModeData is returned by Mode.
	ModeData Mode

	// Frames holds the scripted receive outcomes.
	Frames []MockFrame

	// ReadIndex tracks the current position in Frames.
	ReadIndex int

	// FilterError is returned by ReceiveFilters if set.
	FilterError error

	// TransmitError is returned by Transmit if set. The frame is still recorded.
	TransmitError error

	// FilterCalls records all ReceiveFilters calls.
	FilterCalls []MockFilterCall

	// ReceiveBufSizes records len(buf) of every Receive call.
	ReceiveBufSizes []int

	// Transmitted holds a copy of every buffer passed to Transmit.
	Transmitted [][]byte

	// TransmitHeaders holds the header passed with each transmitted buffer.
	TransmitHeaders []*TxHeader
}

// NewMockSimpleNetwork creates an initialized Ethernet mock with the given
// address and max packet size.
func NewMockSimpleNetwork(addr net.HardwareAddr, maxPacketSize int) *MockSimpleNetwork {
	return &MockSimpleNetwork{ModeData: NewEthernetMode(addr, maxPacketSize)}
}

// Mode returns a copy of ModeData.
func (m *MockSimpleNetwork) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ModeData.clone()
}

// ReceiveFilters records the call and applies it to ModeData unless
// FilterError is set.
func (m *MockSimpleNetwork) ReceiveFilters(enable, disable ReceiveFlags, reset bool, mcastFilter []MACAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FilterCalls = append(m.FilterCalls, MockFilterCall{
		Enable:      enable,
		Disable:     disable,
		Reset:       reset,
		MCastFilter: append([]MACAddress(nil), mcastFilter...),
	})
	if m.FilterError != nil {
		return m.FilterError
	}
	return m.ModeData.applyReceiveFilters(enable, disable, reset, mcastFilter)
}

// Receive returns the next scripted frame. A frame larger than buf is
// consumed and reported as StatusBufferTooSmall.
func (m *MockSimpleNetwork) Receive(buf []byte, hdr *FrameHeader) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReceiveBufSizes = append(m.ReceiveBufSizes, len(buf))
	if m.ReadIndex >= len(m.Frames) {
		return 0, newError("receive", StatusNotReady)
	}
	f := m.Frames[m.ReadIndex]
	m.ReadIndex++
	if f.Err != nil {
		return 0, f.Err
	}
	if len(f.Data) > len(buf) {
		return 0, &Error{Op: "receive", Status: StatusBufferTooSmall, Size: len(f.Data)}
	}
	parseMediaHeader(f.Data, hdr)
	return copy(buf, f.Data), nil
}

// Transmit records a copy of buf and returns TransmitError.
func (m *MockSimpleNetwork) Transmit(buf []byte, hdr *TxHeader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := fillMediaHeader(buf, hdr, &m.ModeData); err != nil {
		return err
	}
	m.Transmitted = append(m.Transmitted, append([]byte(nil), buf...))
	m.TransmitHeaders = append(m.TransmitHeaders, hdr)
	return m.TransmitError
}

// AddFrame appends a frame to the receive script.
func (m *MockSimpleNetwork) AddFrame(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = append(m.Frames, MockFrame{Data: data})
}

// AddError appends a receive error to the script.
func (m *MockSimpleNetwork) AddError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = append(m.Frames, MockFrame{Err: err})
}

// Reset rewinds the receive script and clears recorded calls.
func (m *MockSimpleNetwork) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReadIndex = 0
	m.FilterCalls = nil
	m.ReceiveBufSizes = nil
	m.Transmitted = nil
	m.TransmitHeaders = nil
	m.FilterError = nil
	m.TransmitError = nil
}

// Close is a no-op so the mock satisfies Handle.
func (m *MockSimpleNetwork) Close() error { return nil }
