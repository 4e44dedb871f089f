package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"os"
	"strings"
)

// TerminalID identifies this till on receipts and in the system status. It hashes
// the first active MAC address, falling back to the hostname, into a short stable
// id like "POS-A1B2C3D4".
func TerminalID() string {
	seed := firstMAC()
	if seed == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			return "POS-UNKNOWN"
		}
		seed = host
	}

	hash := sha256.Sum256([]byte(seed + "shop-pos-terminal"))
	return "POS-" + strings.ToUpper(hex.EncodeToString(hash[:])[:8])
}

func firstMAC() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, i := range interfaces {
		// skip loopback and virtual interfaces without hardware
		if i.Flags&net.FlagUp != 0 && i.Flags&net.FlagLoopback == 0 && len(i.HardwareAddr) > 0 {
			return i.HardwareAddr.String()
		}
	}
	return ""
}
