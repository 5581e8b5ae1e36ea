package pdfsandbox

import (
	"testing"

	"github.com/chromedp/cdproto/runtime"
)

func TestCdpRemoteObjectText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		obj  *runtime.RemoteObject
		want string
	}{
		{"nil", nil, ""},
		{"string is unquoted", &runtime.RemoteObject{Type: runtime.TypeString, Value: []byte(`"hi there"`)}, "hi there"},
		{"number kept as JSON", &runtime.RemoteObject{Type: runtime.TypeNumber, Value: []byte(`42`)}, "42"},
		{"object uses description", &runtime.RemoteObject{Type: runtime.TypeObject, Description: "Array(2)"}, "Array(2)"},
		{"undefined falls back to type", &runtime.RemoteObject{Type: runtime.TypeUndefined}, "undefined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := cdpRemoteObjectText(tt.obj); got != tt.want {
				t.Errorf("cdpRemoteObjectText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAwaitPromise(t *testing.T) {
	t.Parallel()

	p := awaitPromise(runtime.Evaluate("1"))
	if !p.AwaitPromise {
		t.Error("awaitPromise should set AwaitPromise")
	}
}
