package snp

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testMAC  = net.HardwareAddr{0x02, 0x00, 0x5e, 0x10, 0x00, 0x01}
	otherMAC = net.HardwareAddr{0x02, 0x00, 0x5e, 0x10, 0x00, 0x02}
	bcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	mcastMAC = net.HardwareAddr{0x01, 0x00, 0x5e, 0x00, 0x00, 0xfb}
)

func TestStatus_ErrorsIs(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("poll: %w", newError("receive", StatusNotReady))
	assert.True(t, errors.Is(err, StatusNotReady))
	assert.False(t, errors.Is(err, StatusDeviceError))
	assert.Equal(t, StatusNotReady, StatusOf(err))
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusSuccess},
		{"bare status", StatusBufferTooSmall, StatusBufferTooSmall},
		{"wrapped error", &Error{Op: "transmit", Status: StatusNotStarted}, StatusNotStarted},
		{"foreign error", errors.New("cable unplugged"), StatusDeviceError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	cause := errors.New("ioctl failed")
	err := &Error{Op: "receive", Status: StatusBufferTooSmall, Size: 9014, Err: cause}
	assert.Equal(t, "snp receive: buffer too small (need 9014 bytes): ioctl failed", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, StatusBufferTooSmall))
}

func TestReceiveFlags_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", ReceiveFlags(0).String())
	assert.Equal(t, "unicast|multicast|broadcast", (ReceiveUnicast | ReceiveMulticast | ReceiveBroadcast).String())
	assert.Equal(t, "promiscuous|0x40", (ReceivePromiscuous | 0x40).String())
}

func TestMACAddress_RoundTrip(t *testing.T) {
	t.Parallel()

	m := MACFromHardwareAddr(testMAC)
	assert.Equal(t, testMAC, m.HardwareAddr(6))
	assert.Equal(t, "02:00:5e:10:00:01", m.String())
	for _, b := range m[6:] {
		assert.Zero(t, b)
	}
}

func TestNewEthernetMode(t *testing.T) {
	t.Parallel()

	got := NewEthernetMode(testMAC, 0)
	want := Mode{
		State:               StateInitialized,
		HwAddressSize:       6,
		MediaHeaderSize:     14,
		MaxPacketSize:       DefaultMaxPacketSize,
		ReceiveFilterMask:   ReceiveAll,
		MaxMCastFilterCount: 16,
		CurrentAddress:      MACFromHardwareAddr(testMAC),
		PermanentAddress:    MACFromHardwareAddr(testMAC),
		BroadcastAddress:    MACFromHardwareAddr(bcastMAC),
		IfType:              1,
		MediaPresent:        true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewEthernetMode() mismatch (-want +got):\n%s", diff)
	}
}

func TestMode_ApplyReceiveFilters(t *testing.T) {
	t.Parallel()

	t.Run("enable then disable", func(t *testing.T) {
		m := NewEthernetMode(testMAC, 0)
		require.NoError(t, m.applyReceiveFilters(ReceiveUnicast|ReceiveBroadcast, 0, false, nil))
		assert.Equal(t, ReceiveUnicast|ReceiveBroadcast, m.ReceiveFilterSetting)

		require.NoError(t, m.applyReceiveFilters(0, ReceiveBroadcast, false, nil))
		assert.Equal(t, ReceiveUnicast, m.ReceiveFilterSetting)
	})

	t.Run("bits outside mask", func(t *testing.T) {
		m := NewEthernetMode(testMAC, 0)
		m.ReceiveFilterMask = ReceiveUnicast
		err := m.applyReceiveFilters(ReceivePromiscuous, 0, false, nil)
		assert.True(t, errors.Is(err, StatusInvalidParameter))
		assert.Zero(t, m.ReceiveFilterSetting)
	})

	t.Run("multicast list replaced and reset", func(t *testing.T) {
		m := NewEthernetMode(testMAC, 0)
		list := []MACAddress{MACFromHardwareAddr(mcastMAC)}
		require.NoError(t, m.applyReceiveFilters(ReceiveMulticast, 0, false, list))
		assert.Equal(t, list, m.MCastFilter)

		require.NoError(t, m.applyReceiveFilters(0, 0, true, nil))
		assert.Nil(t, m.MCastFilter)
	})

	t.Run("multicast list too long", func(t *testing.T) {
		m := NewEthernetMode(testMAC, 0)
		m.MaxMCastFilterCount = 1
		list := make([]MACAddress, 2)
		err := m.applyReceiveFilters(ReceiveMulticast, 0, false, list)
		assert.True(t, errors.Is(err, StatusInvalidParameter))
	})
}

func TestMode_Accepts(t *testing.T) {
	t.Parallel()

	standard := ReceiveUnicast | ReceiveMulticast | ReceiveBroadcast
	otherGroup := net.HardwareAddr{0x33, 0x33, 0x00, 0x00, 0x00, 0x01}

	tests := []struct {
		name    string
		setting ReceiveFlags
		list    []net.HardwareAddr
		dst     net.HardwareAddr
		want    bool
	}{
		{"unicast to us", standard, nil, testMAC, true},
		{"unicast to other", standard, nil, otherMAC, false},
		{"unicast disabled", ReceiveBroadcast, nil, testMAC, false},
		{"broadcast", standard, nil, bcastMAC, true},
		{"broadcast disabled", ReceiveUnicast | ReceiveMulticast, nil, bcastMAC, false},
		{"multicast empty list", standard, nil, mcastMAC, true},
		{"multicast listed", standard, []net.HardwareAddr{mcastMAC}, mcastMAC, true},
		{"multicast not listed", standard, []net.HardwareAddr{mcastMAC}, otherGroup, false},
		{"promiscuous multicast", ReceivePromiscuousMulticast, nil, otherGroup, true},
		{"promiscuous", ReceivePromiscuous, nil, otherMAC, true},
		{"nothing enabled", 0, nil, testMAC, false},
		{"short frame", standard, nil, net.HardwareAddr{0x02}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewEthernetMode(testMAC, 0)
			m.ReceiveFilterSetting = tt.setting
			for _, g := range tt.list {
				m.MCastFilter = append(m.MCastFilter, MACFromHardwareAddr(g))
			}
			assert.Equal(t, tt.want, m.Accepts(tt.dst))
		})
	}
}

func TestMode_NextAcceptedIsBounded(t *testing.T) {
	t.Parallel()

	m := NewEthernetMode(testMAC, 0)
	m.ReceiveFilterSetting = ReceiveUnicast | ReceiveBroadcast

	reads := 0
	busy := func() ([]byte, error) {
		reads++
		return otherMAC, nil
	}
	_, err := m.nextAccepted(busy)
	assert.ErrorIs(t, err, StatusNotReady)
	assert.Equal(t, maxFilteredPerReceive, reads)

	queue := [][]byte{otherMAC, otherMAC, otherMAC, bcastMAC}
	reads = 0
	got, err := m.nextAccepted(func() ([]byte, error) {
		f := queue[reads]
		reads++
		return f, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte(bcastMAC), got)
	assert.Equal(t, 4, reads)

	readErr := &Error{Op: "receive", Status: StatusDeviceError}
	_, err = m.nextAccepted(func() ([]byte, error) { return nil, readErr })
	assert.Same(t, readErr, err)
}

func TestMode_BPFExpression(t *testing.T) {
	t.Parallel()

	m := NewEthernetMode(testMAC, 0)
	assert.Equal(t, "", m.BPFExpression())

	m.ReceiveFilterSetting = ReceiveUnicast | ReceiveMulticast | ReceiveBroadcast
	assert.Equal(t, "ether dst 02:00:5e:10:00:01 or ether broadcast or ether multicast", m.BPFExpression())

	m.MCastFilter = []MACAddress{MACFromHardwareAddr(mcastMAC)}
	assert.Equal(t, "ether dst 02:00:5e:10:00:01 or ether broadcast or ether dst 01:00:5e:00:00:fb", m.BPFExpression())

	m.ReceiveFilterSetting |= ReceivePromiscuous
	assert.Equal(t, "", m.BPFExpression())
}

func TestMediaHeader(t *testing.T) {
	t.Parallel()

	mode := NewEthernetMode(testMAC, 0)
	buf := make([]byte, 20)
	require.NoError(t, fillMediaHeader(buf, &TxHeader{Dst: MACFromHardwareAddr(otherMAC), Protocol: 0x0806}, &mode))

	var hdr FrameHeader
	parseMediaHeader(buf, &hdr)
	assert.Equal(t, MediaHeaderSize, hdr.HeaderSize)
	assert.Equal(t, otherMAC, hdr.Dst.HardwareAddr(6))
	assert.Equal(t, testMAC, hdr.Src.HardwareAddr(6))
	assert.Equal(t, uint16(0x0806), hdr.Protocol)

	err := fillMediaHeader(make([]byte, 4), &TxHeader{}, &mode)
	assert.True(t, errors.Is(err, StatusBufferTooSmall))

	parseMediaHeader(buf[:10], &hdr)
	assert.Zero(t, hdr.HeaderSize)
}
