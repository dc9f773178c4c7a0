package xdgoutput

//go:generate go run deedles.dev/wlcomp/cmd/wlgen -xml ../../protocol/xdg-output-unstable-v1.xml -pkg xdgoutput -prefix zxdg_ -suffix _v1 -out protocol.go
