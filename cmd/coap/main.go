// Command coap is a minimal CoAP client: it sends one Confirmable request
// built with the jnet/coap codec over a UDP socket and prints the matching
// Acknowledgement's payload. It exists to exercise the jnet codec packages
// end to end; the UDP socket, CLI flag parsing and retry loop around them
// are explicitly the kind of OS/network glue jnet itself never touches.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jnet-io/jnet/coap"
	"github.com/jnet-io/jnet/internal"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "coap:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("coap", flag.ContinueOnError)
	port := fs.Int("p", 0, "local UDP port to bind (0 picks an ephemeral port)")
	iface := fs.String("I", "", "network interface to resolve the IPv6 zone (scope id) from")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) < 2 || len(rest) > 3 {
		return fmt.Errorf("usage: coap [-p port] [-I iface] METHOD URL [PAYLOAD]")
	}
	method, rawURL := rest[0], rest[1]
	var payload []byte
	if len(rest) == 3 {
		payload = []byte(rest[2])
	}

	code, err := parseMethod(method)
	if err != nil {
		return err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("bad URL: %w", err)
	}
	if u.Scheme != "coap" {
		return fmt.Errorf("URL scheme must be coap, got %q", u.Scheme)
	}

	remote, err := resolveRemote(u, *iface)
	if err != nil {
		return err
	}

	local := &net.UDPAddr{Port: *port}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer conn.Close()
	if rawConn, err := conn.SyscallConn(); err == nil {
		_ = internal.SetReuseAddr(rawConn)
	}

	msg, msgID, err := buildRequest(code, u.Path, payload)
	if err != nil {
		return err
	}

	reply, err := sendWithRetransmit(conn, remote, msg, msgID)
	if err != nil {
		return err
	}

	printPayload(reply.Payload())
	return nil
}

func parseMethod(method string) (coap.Code, error) {
	switch strings.ToUpper(method) {
	case "GET":
		return coap.Get, nil
	case "POST":
		return coap.Post, nil
	case "PUT":
		return coap.Put, nil
	case "DELETE":
		return coap.Delete, nil
	default:
		return 0, fmt.Errorf("unknown method %q, want one of GET/POST/PUT/DELETE", method)
	}
}

func resolveRemote(u *url.URL, iface string) (*net.UDPAddr, error) {
	host := u.Hostname()
	portStr := u.Port()
	if portStr == "" {
		portStr = strconv.Itoa(coap.Port)
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, portStr))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", u.Host, err)
	}
	if addr.IP.To4() == nil && addr.IP.IsLinkLocalUnicast() && iface != "" {
		ifc, err := internal.InterfaceByName(iface)
		if err != nil {
			return nil, fmt.Errorf("resolve interface %s: %w", iface, err)
		}
		addr.Zone = ifc.Name
	}
	return addr, nil
}

// buildRequest encodes a Confirmable request with a 2-byte randomized token
// and one Uri-Path option per path segment.
func buildRequest(code coap.Code, path string, payload []byte) (coap.Message, uint16, error) {
	const tokenLen = 2
	buf := make([]byte, coap.HeaderSize+tokenLen+256+len(payload))
	msg, err := coap.New(buf, tokenLen)
	if err != nil {
		return coap.Message{}, 0, err
	}
	seed := uint16(time.Now().UnixNano())
	msgID := internal.Prand16(seed)
	tok := internal.Prand16(msgID ^ 0x9e37)
	msg.SetType(coap.Confirmable)
	msg.SetCode(code)
	msg.SetMessageID(msgID)
	token := msg.Token()
	token[0], token[1] = byte(tok>>8), byte(tok)

	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		if err := msg.AddOption(coap.UriPath, []byte(seg)); err != nil {
			return coap.Message{}, 0, fmt.Errorf("add Uri-Path %q: %w", seg, err)
		}
	}
	if err := msg.SetPayload(payload); err != nil {
		return coap.Message{}, 0, fmt.Errorf("set payload: %w", err)
	}
	return msg, msgID, nil
}

// sendWithRetransmit implements RFC 7252 §4.8's Confirmable retransmission
// schedule: up to [internal.MaxRetransmit] retries, with the timeout
// doubling each time, stopping as soon as a matching Acknowledgement arrives.
func sendWithRetransmit(conn *net.UDPConn, remote *net.UDPAddr, msg coap.Message, msgID uint16) (coap.Message, error) {
	timer := internal.NewRetransmitTimer(float64(internal.Prand16(msgID)) / 65536)
	respBuf := make([]byte, 1500)

	for attempt := 0; ; attempt++ {
		if _, err := conn.WriteToUDP(msg.RawData(), remote); err != nil {
			return coap.Message{}, fmt.Errorf("send: %w", err)
		}

		conn.SetReadDeadline(time.Now().Add(timer.Wait()))
		var err error
		for {
			var n int
			n, _, err = conn.ReadFromUDP(respBuf)
			if err != nil {
				break
			}
			reply, perr := coap.Parse(respBuf[:n])
			if perr == nil && reply.MessageID() == msgID && reply.MsgType() == coap.Acknowledgement {
				return reply, nil
			}
			// stray/mismatched packet, keep waiting out the current timeout.
		}
		if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
			return coap.Message{}, fmt.Errorf("receive: %w", err)
		}
		if attempt >= internal.MaxRetransmit {
			return coap.Message{}, fmt.Errorf("no response after %d retransmits", internal.MaxRetransmit)
		}
		timer.Next()
	}
}

func printPayload(p []byte) {
	if len(p) == 0 {
		return
	}
	if utf8.Valid(p) {
		fmt.Println(string(p))
	} else {
		fmt.Printf("% x\n", p)
	}
}
