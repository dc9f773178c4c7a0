package wl

//go:generate go run deedles.dev/wlcomp/cmd/wlgen -xml ../../protocol/wayland.xml -pkg wl -prefix wl_ -out protocol.go
