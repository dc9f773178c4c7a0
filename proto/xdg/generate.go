package xdg

//go:generate go run deedles.dev/wlcomp/cmd/wlgen -xml ../../protocol/xdg-shell.xml -pkg xdg -prefix xdg_ -out protocol.go
