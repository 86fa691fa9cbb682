package netutil

import (
	"encoding/binary"
	"fmt"
	"net"
)

// DescribePacket renders a one-line summary of a raw IP packet for logging:
// protocol, endpoints and length. Packets too short or of unknown version are
// summarized as opaque byte counts rather than rejected.
func DescribePacket(payload []byte) string {
	if len(payload) < 1 {
		return "empty packet"
	}

	switch payload[0] >> 4 {
	case 4:
		return describeIPv4(payload)
	case 6:
		return describeIPv6(payload)
	}
	return fmt.Sprintf("non-IP packet (%d bytes)", len(payload))
}

func describeIPv4(payload []byte) string {
	if len(payload) < 20 {
		return fmt.Sprintf("truncated IPv4 packet (%d bytes)", len(payload))
	}

	ihl := int(payload[0]&0x0f) * 4
	if ihl < 20 || len(payload) < ihl {
		return fmt.Sprintf("malformed IPv4 packet (%d bytes)", len(payload))
	}

	length := binary.BigEndian.Uint16(payload[2:4])
	proto := payload[9]
	src := net.IP(payload[12:16]).String()
	dst := net.IP(payload[16:20]).String()
	return describeTransport(proto, src, dst, payload[ihl:], int(length))
}

func describeIPv6(payload []byte) string {
	if len(payload) < 40 {
		return fmt.Sprintf("truncated IPv6 packet (%d bytes)", len(payload))
	}

	length := int(binary.BigEndian.Uint16(payload[4:6])) + 40
	next := payload[6]
	src := net.IP(payload[8:24]).String()
	dst := net.IP(payload[24:40]).String()
	return describeTransport(next, src, dst, payload[40:], length)
}

func describeTransport(proto uint8, src, dst string, transport []byte, length int) string {
	switch proto {
	case 1:
		return fmt.Sprintf("ICMP %s -> %s len=%d", src, dst, length)
	case 58:
		return fmt.Sprintf("ICMPv6 %s -> %s len=%d", src, dst, length)
	case 6, 17:
		name := "TCP"
		if proto == 17 {
			name = "UDP"
		}
		if len(transport) >= 4 {
			sport := binary.BigEndian.Uint16(transport[0:2])
			dport := binary.BigEndian.Uint16(transport[2:4])
			return fmt.Sprintf("%s %s:%d -> %s:%d len=%d", name, src, sport, dst, dport, length)
		}
		return fmt.Sprintf("%s %s -> %s len=%d", name, src, dst, length)
	}
	return fmt.Sprintf("IP/%d %s -> %s len=%d", proto, src, dst, length)
}
