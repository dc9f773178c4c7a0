package protocol

import "testing"

func TestLoadWayland(t *testing.T) {
	proto, err := Load("wayland.xml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if proto.Name != "wayland" {
		t.Errorf("name: %q", proto.Name)
	}

	var surface *Interface
	for i := range proto.Interfaces {
		if proto.Interfaces[i].Name == "wl_surface" {
			surface = &proto.Interfaces[i]
		}
	}
	if surface == nil {
		t.Fatal("wl_surface not found")
	}
	if surface.Requests[6].Name != "commit" {
		t.Errorf("request 6: %q", surface.Requests[6].Name)
	}
	if !surface.Requests[0].IsDestructor() {
		t.Error("destroy is not a destructor")
	}
}

func TestLoadXDGShell(t *testing.T) {
	proto, err := Load("xdg-shell.xml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for _, iface := range proto.Interfaces {
		if iface.Name != "xdg_positioner" {
			continue
		}
		for _, enum := range iface.Enums {
			if enum.Name != "anchor" {
				continue
			}
			v, err := enum.Entries[8].Int()
			if (err != nil) || (v != 8) {
				t.Fatalf("bottom_right: %v, %v", v, err)
			}
			return
		}
	}
	t.Fatal("xdg_positioner.anchor not found")
}
