package backend

import (
	"image"
	"os"
	"testing"

	"deedles.dev/wlcomp/shm/shmimage"
	"github.com/BurntSushi/xgb/xproto"
)

func xprotoButton(b byte) xproto.Button {
	return xproto.Button(b)
}

func TestX11(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("no X display")
	}

	x, err := NewX11(Options{})
	if err != nil {
		t.Skip(err)
	}

	var host testHost
	err = x.Start(&host)
	if err != nil {
		t.Fatal(err)
	}
	defer x.Close()

	o, ok := host.outputs.Get("X11-1")
	if !ok {
		t.Fatal("no output created")
	}
	err = x.Present(o, shmimage.NewARGB8888(image.Rectangle{Max: o.Mode.Size}))
	if err != nil {
		t.Fatal(err)
	}
}
