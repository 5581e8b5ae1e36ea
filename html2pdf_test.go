package pdfsandbox

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// ---------------------------------------------------------------------------
// TestRodPDFOptions - Print Parameters
// ---------------------------------------------------------------------------

func TestRodPDFOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		size       PageSize
		wantWidth  float64
		wantHeight float64
	}{
		{"a4", PageSizeA4, 8.27, 11.69},
		{"letter", PageSizeLetter, 8.5, 11},
		{"legal", PageSizeLegal, 8.5, 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := rodPDFOptions(&job{pageSize: tt.size})

			if *opts.PaperWidth != tt.wantWidth {
				t.Errorf("PaperWidth = %v, want %v", *opts.PaperWidth, tt.wantWidth)
			}
			if *opts.PaperHeight != tt.wantHeight {
				t.Errorf("PaperHeight = %v, want %v", *opts.PaperHeight, tt.wantHeight)
			}
			for name, m := range map[string]*float64{
				"top":    opts.MarginTop,
				"bottom": opts.MarginBottom,
				"left":   opts.MarginLeft,
				"right":  opts.MarginRight,
			} {
				if *m != marginInches {
					t.Errorf("margin %s = %v, want %v", name, *m, marginInches)
				}
			}
			if !opts.PrintBackground {
				t.Error("PrintBackground should be true")
			}
			if !opts.PreferCSSPageSize {
				t.Error("PreferCSSPageSize should be true")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRemoteObjectText - Console Argument Rendering
// ---------------------------------------------------------------------------

func TestRemoteObjectText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		obj  *proto.RuntimeRemoteObject
		want string
	}{
		{
			name: "nil",
			obj:  nil,
			want: "",
		},
		{
			name: "string value",
			obj:  &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeString, Value: gson.New("hello")},
			want: "hello",
		},
		{
			name: "object uses description",
			obj:  &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeObject, Description: "HTMLDivElement"},
			want: "HTMLDivElement",
		},
		{
			name: "undefined falls back to type",
			obj:  &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeUndefined},
			want: "undefined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := remoteObjectText(tt.obj); got != tt.want {
				t.Errorf("remoteObjectText() = %q, want %q", got, tt.want)
			}
		})
	}
}
