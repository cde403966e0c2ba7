// Package resptest runs minimal RESP servers over TCP for tests that need
// real socket behaviour, such as read deadlines.
package resptest

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

// StartDelayed serves RESP on a loopback port and answers every command
// with +OK after delay. HELLO is refused, so go-redis stays on RESP2, and
// CLIENT is answered at once so the connection handshake is not delayed.
// The listener closes with the test.
func StartDelayed(t testing.TB, delay time.Duration) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go serve(c, delay)
		}
	}()
	return ln.Addr().String()
}

func serve(c net.Conn, delay time.Duration) {
	defer c.Close()
	rd := bufio.NewReader(c)
	for {
		args, err := readCommand(rd)
		if err != nil {
			return
		}
		reply := "+OK\r\n"
		switch strings.ToUpper(args[0]) {
		case "HELLO":
			reply = "-ERR unknown command 'HELLO'\r\n"
		case "CLIENT":
		default:
			time.Sleep(delay)
		}
		if _, err := io.WriteString(c, reply); err != nil {
			return
		}
	}
}

func readCommand(rd *bufio.Reader) ([]string, error) {
	n, err := readLength(rd, '*')
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, io.ErrUnexpectedEOF
	}
	args := make([]string, n)
	for i := range args {
		size, err := readLength(rd, '$')
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(rd, buf); err != nil {
			return nil, err
		}
		args[i] = string(buf[:size])
	}
	return args, nil
}

func readLength(rd *bufio.Reader, prefix byte) (int, error) {
	line, err := rd.ReadString('\n')
	if err != nil {
		return 0, err
	}
	line = strings.TrimSpace(line)
	if len(line) < 2 || line[0] != prefix {
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.Atoi(line[1:])
}
