package repl

import (
	"reflect"
	"testing"
)

func TestCompleter_Complete(t *testing.T) {
	c := NewCompleter("id", "first", "middle", "last", " ", "Status")

	tests := []struct {
		prefix string
		want   []string
	}{
		{"fi", []string{"first"}},
		{"M", []string{"middle"}},
		{"s", []string{"status"}},
		{"h", []string{"history"}},
		{"frist", []string{"first"}},
		{"zzz", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			if got := c.Complete(tt.prefix); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Complete(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}
