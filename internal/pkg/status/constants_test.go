package status

import (
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		want string
	}{
		{st: Pending, want: "pending"},
		{st: Processing, want: "processing"},
		{st: Success, want: "success"},
		{st: Failed, want: "failed"},
		{st: Manual, want: "manual"},
		{st: Status(0), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.st.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	tests := []struct {
		name string
		args string
		want Status
	}{
		{args: "success", want: Success},
		{args: "olia", want: 0},
		{args: "processing", want: Processing},
		{args: "pending", want: Pending},
		{args: "failed", want: Failed},
		{args: "manual", want: Manual},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			if got := From(tt.args); got != tt.want {
				t.Errorf("From() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		st   Status
		want bool
	}{
		{st: Pending, want: false},
		{st: Processing, want: false},
		{st: Success, want: true},
		{st: Failed, want: true},
		{st: Manual, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.st.String(), func(t *testing.T) {
			if got := tt.st.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}
