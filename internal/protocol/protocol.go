// Package protocol implements the line-framed request protocol that
// drives the engine over a connection: read one command line, dispatch
// by keyword, and either reply once or stream delivered signals until
// disconnect.
package protocol

import (
	"bufio"
	"io"
	"net"
	"strings"

	"github.com/rs/zerolog"

	"signalbus/internal/engine"
	"signalbus/internal/metrics"
)

const maxLineLength = 1 << 20

// Deps bundles everything a connection handler needs: the shared
// engine, the metrics registry, and a logger.
type Deps struct {
	Engine  *engine.Engine
	Metrics *metrics.Registry
	Logger  zerolog.Logger
}

// Handle reads exactly one request line from conn, dispatches it, and
// returns once the connection's work is done: a single reply for every
// command except LISTEN, which streams until the client disconnects.
func Handle(conn net.Conn, deps Deps) {
	defer conn.Close()

	reader := bufio.NewReaderSize(conn, 4096)
	line, err := readLine(reader)
	if err != nil {
		if err != io.EOF {
			deps.Logger.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("read request line failed")
		}
		return
	}

	keyword, rest, _ := strings.Cut(line, "|")

	switch keyword {
	case "LOGIN":
		handleLogin(conn, deps, rest)
	case "CREATE_TOKEN":
		handleCreateToken(conn, deps, rest)
	case "REVOKE_TOKEN":
		handleRevokeToken(conn, deps, rest)
	case "EMIT":
		handleEmit(conn, deps, rest)
	case "LISTEN":
		handleListen(conn, deps, reader, rest)
	case "HISTORY":
		handleHistory(conn, deps, rest)
	case "RATE_LIMIT":
		handleRateLimit(conn, deps, rest)
	case "SHOW_RATE_LIMITS":
		handleShowRateLimits(conn, deps, rest)
	default:
		deps.Logger.Debug().Str("keyword", keyword).Msg("unknown command, closing without response")
	}
}

// readLine reads a single '\n'-terminated line, stripping any trailing
// '\r'. '\r' carries no framing meaning otherwise.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return "", io.EOF
		}
		if err != io.EOF {
			return "", err
		}
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	if len(line) > maxLineLength {
		line = line[:maxLineLength]
	}
	return line, nil
}

func writeLine(conn net.Conn, s string) {
	_, _ = io.WriteString(conn, s+"\n")
}

func writeError(conn net.Conn, msg string) {
	writeLine(conn, "ERROR:"+msg)
}

// splitFields splits rest on '|' into at most n fields via bounded
// splitn, so a JSON field embedded among the fields can itself contain
// literal '|' characters as long as it is the last field in the split.
func splitFields(rest string, n int) []string {
	if rest == "" {
		return nil
	}
	return strings.SplitN(rest, "|", n)
}
