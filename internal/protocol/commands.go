package protocol

import (
	"bufio"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"

	"signalbus/internal/auth"
	sig "signalbus/internal/signal"
)

const permErrMsg = "Authentication failed or insufficient permissions"

// authorize reports whether tok carries required (nil means "any valid
// token"); on failure it writes the standard auth-error line and bumps
// the auth-failure counter.
func authorize(conn net.Conn, deps Deps, tok string, required *auth.Permission) bool {
	if !deps.Engine.Auth.Authenticate(tok, required) {
		deps.Metrics.AuthFailures.Inc()
		writeError(conn, permErrMsg)
		return false
	}
	return true
}

func handleLogin(conn net.Conn, deps Deps, rest string) {
	fields := splitFields(rest, 2)
	if len(fields) != 2 {
		writeError(conn, "Invalid LOGIN format")
		return
	}
	user, cred := fields[0], fields[1]

	token, ok := deps.Engine.Auth.Login(user, cred, deps.Engine.DefaultTokenTTL)
	if !ok {
		writeError(conn, "Invalid credentials")
		return
	}
	writeLine(conn, "TOKEN:"+token)
}

func handleCreateToken(conn net.Conn, deps Deps, rest string) {
	fields := splitFields(rest, 4)
	if len(fields) != 3 && len(fields) != 4 {
		writeError(conn, "Invalid CREATE_TOKEN format")
		return
	}
	tok, user, permsCSV := fields[0], fields[1], fields[2]

	admin := auth.Admin
	if !authorize(conn, deps, tok, &admin) {
		return
	}

	perms := auth.ParsePermissions(permsCSV)
	if err := deps.Engine.Auth.EnsureUser(user, perms); err != nil {
		writeError(conn, "Failed to create user: "+err.Error())
		return
	}

	var expiresIn *time.Duration
	if len(fields) == 4 {
		if seconds, err := strconv.ParseInt(fields[3], 10, 64); err == nil {
			d := time.Duration(seconds) * time.Second
			expiresIn = &d
		}
	}

	newToken, err := deps.Engine.Auth.GenerateToken(user, expiresIn)
	if err != nil {
		writeError(conn, "Failed to create token: "+err.Error())
		return
	}
	writeLine(conn, "New token created: "+newToken)
}

func handleRevokeToken(conn net.Conn, deps Deps, rest string) {
	fields := splitFields(rest, 2)
	if len(fields) != 2 {
		writeError(conn, "Invalid REVOKE_TOKEN format")
		return
	}
	adminTok, tok := fields[0], fields[1]

	admin := auth.Admin
	if !authorize(conn, deps, adminTok, &admin) {
		return
	}

	if deps.Engine.Auth.Revoke(tok) {
		writeLine(conn, "OK")
		return
	}
	writeError(conn, "Token not found")
}

func handleEmit(conn net.Conn, deps Deps, rest string) {
	fields := splitFields(rest, 3)
	if len(fields) != 2 && len(fields) != 3 {
		writeError(conn, "Invalid EMIT format")
		return
	}
	tok, payload := fields[0], fields[1]

	write := auth.Write
	if !authorize(conn, deps, tok, &write) {
		return
	}

	var s sig.Signal
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		writeError(conn, err.Error())
		return
	}

	if !deps.Engine.RateLimit.Admit(s.Name) {
		deps.Metrics.RateLimitRejections.Inc()
		writeError(conn, "Rate limit exceeded for signal: "+s.Name)
		return
	}

	var ttl *uint64
	if len(fields) == 3 {
		if v, err := strconv.ParseUint(fields[2], 10, 64); err == nil {
			ttl = &v
		}
	}

	deps.Engine.History.Append(s, deps.Engine.NextID(), ttl)
	considered := deps.Engine.Registry.Fanout(s)

	deps.Metrics.SignalsEmitted.Inc()
	deps.Metrics.FanoutConsidered.Add(float64(considered))

	writeLine(conn, "OK")
}

func handleListen(conn net.Conn, deps Deps, reader *bufio.Reader, rest string) {
	fields := splitFields(rest, 2)
	if len(fields) != 2 {
		writeError(conn, "Invalid LISTEN format")
		return
	}
	tok, pattern := fields[0], fields[1]

	read := auth.Read
	if !authorize(conn, deps, tok, &read) {
		return
	}

	queue := deps.Engine.NewQueue()
	deps.Engine.Registry.Subscribe(pattern, queue)
	defer deps.Engine.Registry.Unsubscribe(pattern, queue)

	writeLine(conn, "LISTENING")

	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		// The reader side of this connection is otherwise idle; a read
		// here only returns once the client closes its write end or the
		// connection breaks, which is how we notice a LISTEN client went
		// away without ever sending another line.
		_, _ = reader.ReadByte()
	}()

	for {
		select {
		case s, ok := <-queue:
			if !ok {
				return
			}
			encoded, err := json.Marshal(s)
			if err != nil {
				deps.Logger.Warn().Err(err).Str("signal", s.Name).Msg("failed to encode signal for delivery")
				continue
			}
			if _, err := conn.Write(append(encoded, '\n')); err != nil {
				return
			}
		case <-disconnected:
			return
		}
	}
}

func handleHistory(conn net.Conn, deps Deps, rest string) {
	fields := splitFields(rest, 3)
	if len(fields) != 3 {
		writeError(conn, "Invalid HISTORY format")
		return
	}
	tok, pattern, limitField := fields[0], fields[1], fields[2]

	hist := auth.History
	if !authorize(conn, deps, tok, &hist) {
		return
	}

	limit, err := strconv.Atoi(limitField)
	if err != nil || limit < 0 {
		limit = 10
	}

	entries := deps.Engine.History.Recent(pattern, limit)
	encoded, err := json.Marshal(entries)
	if err != nil {
		deps.Logger.Error().Err(err).Msg("failed to encode history response")
		writeLine(conn, "[]")
		return
	}
	writeLine(conn, string(encoded))
}

func handleRateLimit(conn net.Conn, deps Deps, rest string) {
	fields := splitFields(rest, 4)
	if len(fields) != 4 {
		writeError(conn, "Invalid RATE_LIMIT format")
		return
	}
	tok, pattern, maxField, perSecField := fields[0], fields[1], fields[2], fields[3]

	rl := auth.RateLimit
	if !authorize(conn, deps, tok, &rl) {
		return
	}

	max, err := strconv.Atoi(maxField)
	if err != nil {
		writeError(conn, "Invalid max signal count")
		return
	}
	perSec, err := strconv.Atoi(perSecField)
	if err != nil {
		writeError(conn, "Invalid window size")
		return
	}

	deps.Engine.RateLimit.SetRule(pattern, max, time.Duration(perSec)*time.Second)
	writeLine(conn, "Rate limit configured successfully")
}

func handleShowRateLimits(conn net.Conn, deps Deps, rest string) {
	tok := rest
	read := auth.Read
	if !authorize(conn, deps, tok, &read) {
		return
	}

	rules := deps.Engine.RateLimit.Rules()
	if len(rules) == 0 {
		writeLine(conn, "No rate limits configured")
		return
	}

	var b strings.Builder
	b.WriteString("Configured rate limits:\n")
	for _, r := range rules {
		b.WriteString("  ")
		b.WriteString(r.Pattern)
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(r.Max))
		b.WriteString(" signals per ")
		b.WriteString(strconv.FormatFloat(r.Window.Seconds(), 'g', -1, 64))
		b.WriteString(" seconds\n")
	}
	_, _ = conn.Write([]byte(b.String()))
}
