package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// interactive reports whether stdin is a terminal we can prompt on.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func readLine(r io.Reader, w io.Writer, question string) string {
	fmt.Fprint(w, question)
	line, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimSpace(line)
}

// promptPort asks for a listen port. Empty or invalid input yields def.
func promptPort(r io.Reader, w io.Writer, def int) int {
	answer := readLine(r, w, fmt.Sprintf("Port to listen on [%d]: ", def))
	if answer == "" {
		return def
	}
	port, err := strconv.Atoi(answer)
	if err != nil || port < 1 || port > 65535 {
		fmt.Fprintf(w, "Invalid port %q, using %d\n", answer, def)
		return def
	}
	return port
}

// promptAddress asks for a host:port. Input that does not parse yields def.
func promptAddress(r io.Reader, w io.Writer, def string) string {
	answer := readLine(r, w, fmt.Sprintf("Server address [%s]: ", def))
	if answer == "" {
		return def
	}
	if !validAddress(answer) {
		fmt.Fprintf(w, "Invalid address %q, using %s\n", answer, def)
		return def
	}
	return answer
}

func validAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
