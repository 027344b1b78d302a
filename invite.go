package main

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// InviteURL builds the join URL a client passes to -join. The map id rides
// along so a mismatch is visible before a connection is even attempted.
func InviteURL(addr, mapID string) string {
	return fmt.Sprintf("ws://%s/ws#map=%s", addr, mapID)
}

// WriteInviteQR renders the invite URL as a QR PNG so another device can
// join by scanning instead of typing an address.
func WriteInviteQR(path, addr, mapID string) error {
	return qrcode.WriteFile(InviteURL(addr, mapID), qrcode.Medium, 256, path)
}
