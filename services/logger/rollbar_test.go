package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/nutridash/core"
)

func TestRollbarLogger_prepare(t *testing.T) {
	l := NewRollbarLogger(log.New(&bytes.Buffer{}, "", 0), core.NewTestConfig())
	err := errors.New("boom")

	tests := []struct {
		name string
		args []interface{}
		want []interface{}
	}{
		{name: "message only", want: []interface{}{"msg"}},
		{name: "error is kept", args: []interface{}{err}, want: []interface{}{"msg", err}},
		{
			name: "district goes to extras",
			args: []interface{}{err, core.District{ID: "d1"}},
			want: []interface{}{"msg", err, map[string]interface{}{"district_id": "d1"}},
		},
		{
			name: "extras are merged",
			args: []interface{}{map[string]interface{}{"count": 2}, core.District{ID: "d1"}, core.District{ID: "d2"}},
			want: []interface{}{"msg", map[string]interface{}{"count": 2, "district_id": "d1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.prepare("msg", tt.args))
		})
	}
}

func TestRollbarLogger_print(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())

	l.Info("refreshed", map[string]interface{}{"kpis": 3})
	assert.Equal(t, "refreshed\nmap[kpis:3]\n", buf.String())
}
