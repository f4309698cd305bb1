package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptions_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{"defaults", PortOptions{}, PortOptions{BaudRate: DefaultBaudRate, DataBits: DefaultDataBits, StopBits: DefaultStopBits, Parity: DefaultParity}, false},
		{"seven bit ascii", PortOptions{DataBits: 7, Parity: "E"}, PortOptions{BaudRate: DefaultBaudRate, DataBits: 7, StopBits: 1, Parity: "E"}, false},
		{"even parity word", PortOptions{BaudRate: 9600, Parity: "even"}, PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "E"}, false},
		{"two stop bits", PortOptions{StopBits: 2, Parity: "o"}, PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 2, Parity: "O"}, false},
		{"bad data bits", PortOptions{DataBits: 9}, PortOptions{}, true},
		{"data bits too narrow for replies", PortOptions{DataBits: 5}, PortOptions{}, true},
		{"bad stop bits", PortOptions{StopBits: 3}, PortOptions{}, true},
		{"bad parity", PortOptions{Parity: "mark"}, PortOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{StopBits: 2, Parity: "E"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaudRate, mode.BaudRate)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)

	_, err = PortOptions{Parity: "?"}.SerialMode()
	assert.Error(t, err)
}

func TestPortOptions_String(t *testing.T) {
	tests := []struct {
		name string
		in   PortOptions
		want string
	}{
		{"firmware defaults", PortOptions{}, "115200 8N1"},
		{"overridden", PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "odd"}, "9600 7O2"},
		{"invalid prints as given", PortOptions{BaudRate: 9600, DataBits: 9, StopBits: 1, Parity: "N"}, "9600 9N1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.String())
		})
	}
}
